package batch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/natefield/sshmux/internal/errors"
)

// fileSpec is the YAML shape of a batch file:
//
//	name: deploy
//	operations:
//	  - name: push config
//	    copy: to
//	    source: ./app.conf
//	    destination: /etc/app/app.conf
//	  - name: restart
//	    run: systemctl restart app
type fileSpec struct {
	Name       string   `yaml:"name"`
	Operations []opSpec `yaml:"operations"`
}

type opSpec struct {
	Name        string `yaml:"name"`
	Run         string `yaml:"run"`
	Copy        string `yaml:"copy"` // "to" or "from"
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
}

// LoadFile reads a batch definition from a YAML file.
func LoadFile(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrBatch,
			fmt.Sprintf("Cannot read batch file %s", path),
			"Check that the file exists and is readable")
	}
	return Parse(data, path)
}

// Parse decodes YAML batch content. name seeds the batch id when the file
// does not carry one.
func Parse(data []byte, name string) (*Batch, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrBatch,
			fmt.Sprintf("Batch file %s is not valid YAML", name),
			"Fix the YAML syntax and retry")
	}

	id := spec.Name
	if id == "" {
		id = name
	}
	b := New(id)

	for i, op := range spec.Operations {
		switch {
		case op.Run != "" && op.Copy != "":
			return nil, errors.New(errors.ErrBatch,
				fmt.Sprintf("Operation %d sets both 'run' and 'copy'", i+1),
				"Each operation is either a command (run) or a transfer (copy)")
		case op.Run != "":
			b.AddCommand(op.Name, op.Run)
		case op.Copy != "":
			kind, err := transferKind(op.Copy)
			if err != nil {
				return nil, errors.WrapWithCode(err, errors.ErrBatch,
					fmt.Sprintf("Operation %d has an invalid transfer direction", i+1),
					"Use copy: to (push) or copy: from (pull)")
			}
			b.AddTransfer(op.Name, kind, op.Source, op.Destination)
		default:
			return nil, errors.New(errors.ErrBatch,
				fmt.Sprintf("Operation %d sets neither 'run' nor 'copy'", i+1),
				"Each operation needs a 'run' command or a 'copy' direction")
		}
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func transferKind(direction string) (Kind, error) {
	switch direction {
	case "to":
		return TransferTo, nil
	case "from":
		return TransferFrom, nil
	default:
		return TransferTo, fmt.Errorf("unknown direction %q", direction)
	}
}
