package io

import (
	"encoding/json"
	"io"
	"os"

	"github.com/matzehuels/dmfbsynth/pkg/errors"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// ReadProblem decodes a problem in the persisted JSON format from r and
// validates it:
//
//	{
//	  "name": "pcr",
//	  "chip_width": 10,
//	  "chip_height": 10,
//	  "modules": {
//	    "mixer_3x3": {"name": "mixer_3x3", "type": "mixer", "width": 3, "height": 3, "exec_time": 5}
//	  },
//	  "operations": [
//	    {"id": 1, "op_type": "mix", "module_type": "mixer_3x3", "dependencies": []},
//	    {"id": 2, "op_type": "mix", "module_type": "mixer_3x3", "dependencies": [1], "duration": 7}
//	  ]
//	}
//
// Malformed JSON yields an INVALID_FORMAT error. Structural problems
// (unknown module types, cycles and so on) are reported with the codes of
// [problem.New]. ReadProblem does not close r.
func ReadProblem(r io.Reader) (*problem.Problem, error) {
	var data problemFile
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode problem")
	}

	for i := range data.Operations {
		if data.Operations[i].Dependencies == nil {
			data.Operations[i].Dependencies = []int{}
		}
	}
	return problem.New(data.Name, problem.Chip{Width: data.ChipWidth, Height: data.ChipHeight},
		data.Modules, data.Operations)
}

// LoadProblem reads and validates the problem stored at path.
func LoadProblem(path string) (*problem.Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()

	p, err := ReadProblem(f)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	return p, nil
}
