package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/loykin/mealsmoke"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type stepView struct {
	Seq    int    `yaml:"seq"`
	Op     int    `yaml:"op"`
	Name   string `yaml:"name"`
	Method string `yaml:"method"`
	Target string `yaml:"target"`
	Body   any    `yaml:"body,omitempty"`
	Marker string `yaml:"marker"`
}

func newStepsCmd(v *viper.Viper) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Print the smoke plan without sending any request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, closer, err := loadDoc(cmd, v)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()
			return printSteps(cmd.OutOrStdout(), doc.BaseURL, mealsmoke.Steps(doc), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or yaml")
	return cmd
}

func printSteps(w io.Writer, baseURL string, steps []mealsmoke.Step, output string) error {
	views := make([]stepView, 0, len(steps))
	for i, st := range steps {
		views = append(views, stepView{
			Seq:    i + 1,
			Op:     st.Op,
			Name:   st.Name,
			Method: st.Call.Method,
			Target: st.Call.Target(),
			Body:   st.Call.Body,
			Marker: st.Marker.String(),
		})
	}

	switch strings.ToLower(strings.TrimSpace(output)) {
	case "yaml":
		return writeYAML(w, map[string]any{"base_url": baseURL, "steps": views})
	case "text", "":
		_, _ = fmt.Fprintf(w, "Base URL: %s\n", baseURL)
		for _, sv := range views {
			_, _ = fmt.Fprintf(w, "%2d. [op %2d] %-7s %-36s expect %s\n", sv.Seq, sv.Op, sv.Method, sv.Target, sv.Marker)
		}
		return nil
	default:
		return invalidOutput(output)
	}
}
