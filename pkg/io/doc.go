// Package io reads and writes synthesis problems and results.
//
// # Problem Format
//
// Problems are stored as JSON with the chip size, a module catalog keyed by
// module type and the operation list:
//
//	{
//	  "name": "pcr",
//	  "chip_width": 10,
//	  "chip_height": 10,
//	  "modules": {
//	    "mixer_3x3": {"name": "mixer_3x3", "type": "mixer", "width": 3, "height": 3, "exec_time": 5}
//	  },
//	  "operations": [
//	    {"id": 1, "op_type": "mix", "module_type": "mixer_3x3", "dependencies": []}
//	  ]
//	}
//
// "duration" is optional per operation and overrides the module's
// exec_time. [WriteProblem] output is canonical: reading a file and writing
// it back produces the same bytes as the first write.
//
// # Result Format
//
// [Output] is what the pipeline and external adapters exchange:
//
//	{
//	  "problem": "pcr",
//	  "placement": {"1": [0, 0]},
//	  "schedule": {"1": [0, 5]},
//	  "routes": {"0": [[0, 0, 5], [1, 0, 6]]},
//	  "makespan": 5,
//	  "timing": {"scheduling": 0.001, "placement": 0.2, "routing": 0.01, "total": 0.211},
//	  "feasible": true
//	}
//
// # Graphs
//
// [ToDOT] exports the operation graph; [RenderDOT] turns it into SVG or
// PNG through the embedded Graphviz of [github.com/goccy/go-graphviz].
package io
