package mock

import (
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"github.com/jmgilman/go/subproc/errors"
)

// fixtureFile is the YAML layout accepted by LoadFixtures:
//
//	rules:
//	  - name: git
//	    stdout: ["main"]
//	  - args: ["ls", "{}", "-l"]
//	    stderr: ["ls: cannot access"]
//	    returncode: 2
type fixtureFile struct {
	Rules []fixtureRule `yaml:"rules"`
}

type fixtureRule struct {
	Name       string   `yaml:"name"`
	Args       []string `yaml:"args"`
	Stdout     []string `yaml:"stdout"`
	Stderr     []string `yaml:"stderr"`
	ReturnCode *int     `yaml:"returncode"`
}

func (r fixtureRule) pattern() (Pattern, error) {
	switch {
	case r.Name != "" && len(r.Args) > 0:
		return Pattern{}, errors.New(errors.CodeInvalidInput, "fixture rule sets both name and args")
	case r.Name != "":
		return Name(r.Name), nil
	case len(r.Args) > 0:
		return Args(r.Args...), nil
	default:
		return Pattern{}, errors.New(errors.CodeInvalidInput, "fixture rule sets neither name nor args")
	}
}

func (r fixtureRule) options() []RuleOption {
	var opts []RuleOption
	if r.Stdout != nil {
		opts = append(opts, WithStdout(r.Stdout...))
	}
	if r.Stderr != nil {
		opts = append(opts, WithStderr(r.Stderr...))
	}
	if r.ReturnCode != nil {
		opts = append(opts, WithReturnCode(*r.ReturnCode))
	}
	return opts
}

// LoadFixtures registers the canned rules described by the YAML file at path.
// Rules are registered in file order; the first invalid rule stops loading.
func (m *RunMocker) LoadFixtures(fs billy.Filesystem, path string) error {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		code := errors.CodeInternal
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return errors.WithContext(errors.Wrapf(err, code, "read fixtures %s", path), "path", path)
	}

	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return errors.WithContext(errors.Wrapf(err, errors.CodeInvalidInput, "parse fixtures %s", path), "path", path)
	}

	for i, r := range file.Rules {
		p, err := r.pattern()
		if err == nil {
			err = m.Register(p, r.options()...)
		}
		if err != nil {
			return errors.WithContextMap(err, map[string]any{"path": path, "rule": i})
		}
	}
	return nil
}
