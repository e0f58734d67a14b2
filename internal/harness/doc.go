// Package harness runs scripted client scenarios against a stubbed service.
//
// A scenario is a YAML file listing request/response exchanges. Each step
// names an operation (find, count, get, insert, update, delete, function),
// the request path, the canned response and what the result must look like:
//
//	name: find_products
//	description: Atom feed with inline count
//	steps:
//	  - operation: find
//	    path: Products?$inlinecount=allpages
//	    inline_count: true
//	    response:
//	      body: "<feed ...>"
//	    expect:
//	      outcome: success
//	      records: 2
//	      total_count: 77
//	      fields:
//	        0.ProductName: Chai
//	assertions:
//	  - type: journal_count
//	    operation: find
//	    count: 1
//
// Steps go through the real runner, decoder and journal; only the network is
// replaced. Request ids and timings are deterministic so the resulting
// Report can be compared byte for byte with a golden file.
package harness
