// Package graphio reads and writes operator graphs as HCL files.
//
// A graph file has three kinds of top-level blocks:
//
//	input "prices" {
//	  sampling       = "6f1c..."   # optional; aligned inputs share it
//	  unix_timestamp = true
//	  feature "price" { dtype = "float64" }
//	  index "user"    { dtype = "str" }
//	}
//
//	operator "op_0" {
//	  key = "PREFIX"
//	  inputs {
//	    input = input.prices
//	  }
//	  attribute "prefix" {
//	    kind  = "str"
//	    value = "p_"
//	  }
//	}
//
//	output "result" {
//	  node = operator.op_0.output
//	}
//
// Operators refer to graph inputs as input.<name> and to other operators'
// outputs as operator.<id>.<slot>. Operator blocks may appear in any order
// and may be spread over several files of a directory. Loading rebuilds
// every operator through the registry, so a loaded graph passes exactly the
// checks a graph built in code does.
package graphio
