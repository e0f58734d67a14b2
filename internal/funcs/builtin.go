package funcs

// defaultRegistry is built once at package initialisation and never written
// again.
var defaultRegistry = MustNew(builtins()...)

// Default returns the process-wide registry of protocol functions.
func Default() *Registry {
	return defaultRegistry
}

func builtins() []Entry {
	first := func(name string, arity int, keyword string) Entry {
		return Entry{Key: Key{Name: name, Arity: arity}, Keyword: keyword, Receiver: ReceiverFirst}
	}
	last := func(name string, arity int, keyword string) Entry {
		return Entry{Key: Key{Name: name, Arity: arity}, Keyword: keyword, Receiver: ReceiverLast}
	}

	return []Entry{
		// String functions
		last("Contains", 1, "substringof"),
		first("StartsWith", 1, "startswith"),
		first("EndsWith", 1, "endswith"),
		first("IndexOf", 1, "indexof"),
		first("Substring", 1, "substring"),
		first("Substring", 2, "substring"),
		first("Replace", 2, "replace"),
		first("Concat", 1, "concat"),
		first("Length", 0, "length"),
		first("ToLower", 0, "tolower"),
		first("ToUpper", 0, "toupper"),
		first("Trim", 0, "trim"),

		// Date functions
		first("Year", 0, "year"),
		first("Month", 0, "month"),
		first("Day", 0, "day"),
		first("Hour", 0, "hour"),
		first("Minute", 0, "minute"),
		first("Second", 0, "second"),

		// Math functions
		first("Round", 0, "round"),
		first("Floor", 0, "floor"),
		first("Ceiling", 0, "ceiling"),
	}
}
