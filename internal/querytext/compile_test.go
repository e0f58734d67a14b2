package querytext

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odyn/internal/dynamic"
	"github.com/roach88/odyn/internal/expr"
	"github.com/roach88/odyn/internal/funcs"
)

type status string

func TestCompile_Nil(t *testing.T) {
	_, err := NewCompiler(nil).Compile(nil)
	require.Error(t, err)
}

func TestCompile_Equality(t *testing.T) {
	c := NewCompiler(nil)

	got, err := c.Compile(expr.Eq(expr.Ref("ProductName"), expr.Lit("Chai")))
	require.NoError(t, err)
	assert.Equal(t, "ProductName eq 'Chai'", got)
}

func TestCompile_ReceiverPlacement(t *testing.T) {
	c := NewCompiler(nil)
	x := dynamic.Root()

	got, err := c.Compile(x.Get("ProductName").MustCall("Contains", "ai").Node())
	require.NoError(t, err)
	assert.Equal(t, "substringof('ai',ProductName)", got)

	got, err = c.Compile(x.Get("ProductName").MustCall("StartsWith", "Ch").Node())
	require.NoError(t, err)
	assert.Equal(t, "startswith(ProductName,'Ch')", got)
}

func TestCompile_UnsupportedFunction(t *testing.T) {
	c := NewCompiler(nil)

	node := expr.Eq(expr.Method(expr.Ref("Name"), expr.Call("Soundex", expr.Lit("x"))), expr.Lit(true))
	_, err := c.Compile(node)

	require.Error(t, err)
	assert.True(t, funcs.IsUnsupportedFunction(err))
}

func TestCompile_MethodWithoutReceiver(t *testing.T) {
	_, err := NewCompiler(nil).Compile(dynamic.Root().Get("Length").Node())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no receiver")
}

func TestCompile_StandaloneFunctionCall(t *testing.T) {
	got, err := NewCompiler(nil).Compile(expr.Call("Concat", expr.Lit("a")))
	require.NoError(t, err)
	assert.Equal(t, "concat('a')", got)
}

func TestCompile_Precedence(t *testing.T) {
	a, b, c := expr.Ref("A"), expr.Ref("B"), expr.Ref("C")

	testCases := []struct {
		name string
		node expr.Node
		want string
	}{
		{"and inside or", expr.Or(expr.And(a, b), c), "A and B or C"},
		{"or inside and", expr.And(expr.Or(a, b), c), "(A or B) and C"},
		{"right-nested same precedence", expr.Sub(a, expr.Sub(b, c)), "A sub (B sub C)"},
		{"left-nested same precedence", expr.Sub(expr.Sub(a, b), c), "A sub B sub C"},
		{"mul inside add", expr.Add(a, expr.Mul(b, c)), "A add B mul C"},
		{"add inside mul", expr.Mul(expr.Add(a, b), c), "(A add B) mul C"},
		{"not of comparison", expr.Not(expr.Eq(a, expr.Lit(1))), "not (A eq 1)"},
		{"not of reference", expr.Not(a), "not A"},
		{"negate of sum", expr.Negate(expr.Add(a, b)), "-(A add B)"},
		{"negate of negative literal", expr.Eq(a, expr.Negate(expr.Lit(-5))), "A eq -(-5)"},
		{"double negation", expr.Negate(expr.Negate(a)), "-(-A)"},
		{"negate of negative infinity", expr.Negate(expr.Lit(math.Inf(-1))), "-(-INF)"},
		{"comparison of arithmetic", expr.Gt(expr.Mul(a, expr.Lit(2)), expr.Lit(10)), "A mul 2 gt 10"},
	}

	comp := NewCompiler(nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := comp.Compile(tc.node)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompile_InvalidOperator(t *testing.T) {
	_, err := NewCompiler(nil).Compile(expr.BinaryOp{Left: expr.Ref("a"), Right: expr.Ref("b")})
	require.Error(t, err)
}

func TestFormatLiteral(t *testing.T) {
	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")

	testCases := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, "null"},
		{"string", "Chai", "'Chai'"},
		{"quote escaping", "O'Neil", "'O''Neil'"},
		{"nfc normalisation", "e\u0301", "'\u00e9'"},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"float", 2.5, "2.5"},
		{"integral float", 3.0, "3"},
		{"float32", float32(0.25), "0.25"},
		{"time", time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), "datetime'2024-03-01T10:30:00'"},
		{"time with fraction", time.Date(2024, 3, 1, 10, 30, 0, 500000000, time.UTC), "datetime'2024-03-01T10:30:00.5'"},
		{"time converted to utc", time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 7200)), "datetime'2024-03-01T10:00:00'"},
		{"uuid", id, "guid'0f8fad5b-d9cb-469f-a165-70867728950e'"},
		{"binary", []byte{0xab, 0x01}, "X'ab01'"},
		{"named string", status("active"), "'active'"},
		{"uint", uint(9), "9"},
		{"positive infinity", math.Inf(1), "INF"},
		{"negative infinity", math.Inf(-1), "-INF"},
		{"not a number", math.NaN(), "NaN"},
		{"float32 infinity", float32(math.Inf(1)), "INF"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FormatLiteral(tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatLiteral_Unsupported(t *testing.T) {
	_, err := FormatLiteral(struct{}{})
	require.Error(t, err)

	_, err = FormatLiteral(map[string]int{})
	require.Error(t, err)
}

func TestCompile_Golden(t *testing.T) {
	x := dynamic.Root()
	comp := NewCompiler(nil)

	cases := []struct {
		name string
		h    dynamic.Handle
	}{
		{"field write", x.Set("CategoryID", 1)},
		{"nested member", x.Get("Category").Get("CategoryName").Eq("Beverages")},
		{"zero-arg function", x.Get("ProductName").Get("Length").Gt(4)},
		{"contains", x.Get("ProductName").MustCall("Contains", "ai")},
		{"to lower then starts with", x.Get("ProductName").Get("ToLower").MustCall("StartsWith", "ch")},
		{"substring two args", x.Get("ProductName").MustCall("Substring", 1, 2).Eq("ha")},
		{"replace", x.Get("ProductName").MustCall("Replace", "a", "o").Eq("Choi")},
		{"date part", x.Get("OrderDate").Get("Year").Eq(1997)},
		{"arithmetic", x.Get("UnitPrice").Mul(x.Get("Quantity")).Gt(100)},
		{"combined", x.Get("UnitPrice").Lt(20).And(x.Get("Discontinued").Not()).Or(x.Set("ProductName", "Chai"))},
	}

	var sb strings.Builder
	for _, tc := range cases {
		text, err := comp.Compile(tc.h.Node())
		require.NoError(t, err, tc.name)
		fmt.Fprintf(&sb, "%s: %s\n", tc.name, text)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "filters", []byte(sb.String()))
}
