package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

type problemFile struct {
	Name       string                    `json:"name"`
	ChipWidth  int                       `json:"chip_width"`
	ChipHeight int                       `json:"chip_height"`
	Modules    map[string]problem.Module `json:"modules"`
	Operations []problem.Operation       `json:"operations"`
}

func toFile(p *problem.Problem) problemFile {
	ops := p.Operations()
	for i := range ops {
		if ops[i].Dependencies == nil {
			ops[i].Dependencies = []int{}
		}
	}
	chip := p.Chip()
	return problemFile{
		Name:       p.Name(),
		ChipWidth:  chip.Width,
		ChipHeight: chip.Height,
		Modules:    p.Modules(),
		Operations: ops,
	}
}

// WriteProblem encodes p in the persisted JSON format. Module keys are
// sorted, operations appear in ID order and dependency lists are always
// present, so writing a problem that was read with [ReadProblem] yields
// identical bytes.
func WriteProblem(p *problem.Problem, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toFile(p)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// SaveProblem writes p to a JSON file at path.
func SaveProblem(p *problem.Problem, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteProblem(p, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// MarshalProblem returns the persisted JSON encoding of p.
func MarshalProblem(p *problem.Problem) ([]byte, error) {
	data, err := json.MarshalIndent(toFile(p), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return append(data, '\n'), nil
}
