package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
	"github.com/signalnine/fomstat/internal/fom"
	"github.com/signalnine/fomstat/internal/multirun"
	"github.com/signalnine/fomstat/internal/resfile"
	"github.com/signalnine/fomstat/internal/result"
	"github.com/signalnine/fomstat/internal/run"
	"gopkg.in/yaml.v3"
)

// Study describes a parametric study: the run directories, their params
// and the quantities to report.
type Study struct {
	EnvFile    string     `yaml:"env_file"`
	Pattern    string     `yaml:"pattern"`
	Parallel   int        `yaml:"parallel"`
	Workers    int        `yaml:"workers"`
	Parser     Parser     `yaml:"parser"`
	CostBasis  string     `yaml:"cost_basis"`
	LastN      int        `yaml:"last_n"`
	Runs       []Run      `yaml:"runs"`
	Quantities []Quantity `yaml:"quantities"`

	Basis fom.Basis `yaml:"-"`
	// matrix is the compiled Parser.MatrixPattern, nil for the default.
	matrix *regexp.Regexp
}

type Parser struct {
	CycleField    string `yaml:"cycle_field"`
	CPUField      string `yaml:"cpu_field"`
	MatrixPattern string `yaml:"matrix_pattern"`
}

type Run struct {
	Dir    string         `yaml:"dir"`
	Params map[string]any `yaml:"params"`

	params run.Params
}

type Quantity struct {
	Name    string `yaml:"name"`
	Entries string `yaml:"entries"`
	Stat    string `yaml:"stat"`

	// Entry is nil when the whole quantity is reported.
	Entry *result.Entry     `yaml:"-"`
	Kind  multirun.StatKind `yaml:"-"`
}

func Load(path string) (*Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var s Study
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&s, filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &s, nil
}

// validate fills defaults and resolves run directories relative to base.
func validate(s *Study, base string) error {
	if len(s.Runs) == 0 {
		return fmt.Errorf("no runs defined")
	}
	if s.Pattern == "" {
		s.Pattern = result.DefaultPattern
	}
	if _, err := filepath.Match(s.Pattern, ""); err != nil {
		return fmt.Errorf("pattern %q: %w", s.Pattern, err)
	}
	if s.Parallel < 1 {
		s.Parallel = 1
	}
	if s.Workers < 1 {
		s.Workers = 1
	}
	if s.LastN < 0 {
		return fmt.Errorf("last_n must not be negative")
	}
	basis, err := fom.ParseBasis(s.CostBasis)
	if err != nil {
		return err
	}
	s.Basis = basis
	s.CostBasis = basis.String()

	if s.Parser.MatrixPattern != "" {
		re, err := regexp.Compile(s.Parser.MatrixPattern)
		if err != nil {
			return fmt.Errorf("matrix_pattern: %w", err)
		}
		s.matrix = re
	}

	env := map[string]string{}
	if s.EnvFile != "" {
		envPath := s.EnvFile
		if !filepath.IsAbs(envPath) {
			envPath = filepath.Join(base, envPath)
		}
		env, err = godotenv.Read(envPath)
		if err != nil {
			return fmt.Errorf("reading env_file %s: %w", envPath, err)
		}
	}
	lookup := func(key string) string {
		if v, ok := env[key]; ok {
			return v
		}
		return os.Getenv(key)
	}

	for i := range s.Runs {
		r := &s.Runs[i]
		dir := os.Expand(r.Dir, lookup)
		if dir == "" {
			return fmt.Errorf("run %d: dir is required", i)
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(base, dir)
		}
		r.Dir = dir
		p, err := run.ParamsFromMap(r.Params)
		if err != nil {
			return fmt.Errorf("run %d: %w", i, err)
		}
		r.params = p
	}

	for i := range s.Quantities {
		q := &s.Quantities[i]
		if q.Name == "" {
			return fmt.Errorf("quantity %d: name is required", i)
		}
		if q.Entries != "" {
			e, err := result.ParseEntry(q.Entries)
			if err != nil {
				return fmt.Errorf("quantity %q: %w", q.Name, err)
			}
			q.Entry = &e
		}
		kind, err := multirun.ParseStatKind(q.Stat)
		if err != nil {
			return fmt.Errorf("quantity %q: %w", q.Name, err)
		}
		q.Kind = kind
		q.Stat = kind.String()
	}
	return nil
}

// Dirs returns the resolved run directories in config order.
func (s *Study) Dirs() []string {
	out := make([]string, len(s.Runs))
	for i, r := range s.Runs {
		out[i] = r.Dir
	}
	return out
}

// Params returns the params of each run, aligned with Dirs.
func (s *Study) Params() []run.Params {
	out := make([]run.Params, len(s.Runs))
	for i, r := range s.Runs {
		out[i] = r.params
	}
	return out
}

// LoadOpts is the per-run load configuration; logger may be nil.
func (s *Study) LoadOpts(logger *log.Logger) *run.LoadOpts {
	return &run.LoadOpts{
		Pattern: s.Pattern,
		Workers: s.Workers,
		Parser: resfile.Options{
			CycleField:    s.Parser.CycleField,
			CPUField:      s.Parser.CPUField,
			MatrixPattern: s.matrix,
		},
		Logger: logger,
	}
}

// Stat is the aggregation statistic of q under the study's basis and window.
func (s *Study) Stat(q Quantity) multirun.Stat {
	return multirun.Stat{Kind: q.Kind, Basis: s.Basis, LastN: s.LastN}
}
