package cli

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/scheduler"
)

// WeightsCmd prints the effective scoring weights as YAML, suitable as
// a starting point for a --weights file.
type WeightsCmd struct {
	File string `arg:"" optional:"" help:"Weights file to resolve instead of the defaults." type:"path"`
}

func (c *WeightsCmd) Run(ctx *Context) error {
	weights := scheduler.DefaultWeights()
	if c.File != "" {
		var err error
		weights, err = scheduler.LoadWeights(c.File)
		if err != nil {
			return err
		}
	}
	out, err := yaml.Marshal(weights)
	if err != nil {
		return fmt.Errorf("failed to render weights: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
