package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joeblew999/plat-viewer/internal/layertree"
	"github.com/joeblew999/plat-viewer/internal/service"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <app.yaml>",
		Short: "Check an application file for dangling references",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			problems, err := validate(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			for _, p := range problems {
				fmt.Println(p)
			}
			if len(problems) > 0 {
				os.Exit(1)
			}
			fmt.Println("ok")
		},
	}
}

func validate(path string) ([]string, error) {
	state := service.NewAppStateService("", nil)
	if err := state.LoadYAML(path); err != nil {
		return nil, err
	}
	st := state.Snapshot()

	services := map[string]bool{}
	for _, s := range st.Services {
		services[s.ID] = true
	}
	layers := map[int]bool{}
	var problems []string
	for _, l := range st.Layers {
		layers[l.ID] = true
		if !services[l.ServiceID] {
			problems = append(problems, fmt.Sprintf("layer %d: unknown service %q", l.ID, l.ServiceID))
		}
	}

	check := func(tree string, nodes []layertree.Node) {
		t := layertree.New(nodes)
		if _, ok := t.Root(); !ok {
			problems = append(problems, fmt.Sprintf("%s tree: no root node", tree))
		}
		for _, n := range nodes {
			if n.IsAppLayer() && !layers[*n.AppLayerID] {
				problems = append(problems, fmt.Sprintf("%s tree node %q: unknown layer %d", tree, n.ID, *n.AppLayerID))
			}
			for _, c := range n.ChildrenIDs {
				if _, ok := t.Node(c); !ok {
					problems = append(problems, fmt.Sprintf("%s tree node %q: unknown child %q", tree, n.ID, c))
				}
			}
		}
	}
	check("layer", st.LayerTree)
	check("background", st.BackgroundTree)
	return problems, nil
}
