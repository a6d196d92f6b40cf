package core

import (
	"fmt"
	"io"
	"time"

	"assettree/internal/asset"
)

// Result holds the local and global outcome for one name.
type Result struct {
	Name        string   `json:"name"`
	Local       string   `json:"local,omitempty"`
	LocalError  string   `json:"local_error,omitempty"`
	Global      []string `json:"global"`
	GlobalError string   `json:"global_error,omitempty"`
}

// Report is the outcome of running a Request against a freshly built tree.
type Report struct {
	Root      string    `json:"root"`
	Alive     bool      `json:"alive"`
	Nodes     int       `json:"nodes"`
	Results   []Result  `json:"results"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTree builds the tree a request asks for.
func (r *Request) NewTree() *asset.Tree {
	if r.Depth == 0 {
		return asset.NewTree(r.Root)
	}
	return asset.Build(r.Root, r.Depth)
}

// NewReport resolves every name against tree.
func NewReport(tree *asset.Tree, names []string) *Report {
	report := &Report{
		Root:      tree.Path(),
		Alive:     tree.IsAlive(),
		Nodes:     tree.Len(),
		Results:   make([]Result, 0, len(names)),
		CreatedAt: time.Now(),
	}

	for _, name := range names {
		res := Result{Name: name, Global: []string{}}

		if p, err := tree.GetLocal(name); err != nil {
			res.LocalError = describe(err)
		} else {
			res.Local = p
		}

		if matches, err := tree.GetGlobal(name); err != nil {
			res.GlobalError = describe(err)
		} else {
			res.Global = matches
		}

		report.Results = append(report.Results, res)
	}

	return report
}

// Failed reports whether any name failed to resolve locally and globally.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.Local == "" && len(res.Global) == 0 {
			return true
		}
	}
	return false
}

// WriteText renders the report for a terminal.
func (r *Report) WriteText(w io.Writer) error {
	status := "alive"
	if !r.Alive {
		status = "not alive"
	}
	if _, err := fmt.Fprintf(w, "%s (%s, %d nodes)\n", r.Root, status, r.Nodes); err != nil {
		return err
	}

	for _, res := range r.Results {
		local := res.Local
		if res.LocalError != "" {
			local = res.LocalError
		}
		if _, err := fmt.Fprintf(w, "  %s\n    local:  %s\n", res.Name, local); err != nil {
			return err
		}

		switch {
		case res.GlobalError != "":
			_, err := fmt.Fprintf(w, "    global: %s\n", res.GlobalError)
			if err != nil {
				return err
			}
		case len(res.Global) == 0:
			if _, err := fmt.Fprintln(w, "    global: no matches"); err != nil {
				return err
			}
		default:
			for i, m := range res.Global {
				label := "global:"
				if i > 0 {
					label = "       "
				}
				if _, err := fmt.Fprintf(w, "    %s %s\n", label, m); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// describe prefixes lookup errors with their kind.
func describe(err error) string {
	if kind, ok := asset.KindOf(err); ok {
		return fmt.Sprintf("%s: %v", kind, err)
	}
	return err.Error()
}
