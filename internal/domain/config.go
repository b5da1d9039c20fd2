package domain

import (
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	configKit "github.com/gookit/config/v2"
	"github.com/gookit/config/v2/yaml"
	"github.com/imdario/mergo"
	"github.com/mitchellh/mapstructure"
)

const (
	OptionName    = "name"
	OptionDefault = "default"
	OptionDesc    = "description"

	BoundaryEndFirst   = "end-first"
	BoundaryStartFirst = "start-first"
)

type AnalysisConfig struct {
	YAML            string `name:"yaml" description:"Path to config file in the yml format."`
	JobLogFile      string `name:"job-log" description:"File path of the JSON job log (one array of job records)."`
	GPUUtilFile     string `name:"gpu-util" description:"File path of the per-GPU utilization CSV (time, machineId, gpu0_util ... gpu7_util)."`
	CPUUtilFile     string `name:"cpu-util" description:"File path of the host CPU utilization CSV (time, machine_id, cpu_util)."`
	MemUtilFile     string `name:"mem-util" description:"File path of the host memory CSV (time, machine_id, mem_total, mem_free)."`
	MachineListFile string `name:"machine-list" description:"File path of the machine list CSV (machineId, number of GPUs)."`
	OutputDir       string `name:"o" description:"Directory the CDF, summary and machine CSVs are written to."`
	MetricsTextfile string `name:"metrics-textfile" description:"If set, the run's Prometheus metrics are written to this file in the text exposition format."`

	// GPUsPerHost drives the dedicated-server heuristic: an attempt is dedicated when it spans at most
	// requested/GPUsPerHost machines. It depends on how the traced cluster packs GPUs into hosts.
	GPUsPerHost        int    `name:"gpus-per-host" description:"GPUs packed into one host of the traced cluster; used by the dedicated-server filter."`
	GPUCounts          string `name:"gpu-counts" description:"Comma-separated canonical job sizes (in GPUs) that utilization is grouped by."`
	LargeJobThreshold  int    `name:"large-job-threshold" description:"Jobs requesting fewer GPUs than this are dropped when only-large-jobs is set."`
	OnlyLargeJobs      bool   `name:"only-large-jobs" description:"Restrict the primary GPU utilization pass to large jobs."`
	OnlyDedicated      bool   `name:"only-dedicated-servers" description:"Restrict the primary GPU utilization pass to attempts on dedicated servers."`
	BoundaryConvention string `name:"boundary-convention" description:"Order of an attempt end and an attempt start at the same instant in the overlap sweep: 'end-first' or 'start-first'."`
	Workers            int    `name:"workers" description:"Goroutines used by the utilization and overlap passes."`
	SkipMalformed      bool   `name:"skip-malformed" description:"Log and drop malformed job records and utilization rows instead of aborting the run."`

	Debug   bool `name:"debug" description:"Display debug logs."`
	Verbose bool `name:"v" description:"Display verbose logs."`
}

// GetDefaultConfig returns the configuration used when neither flags nor a YAML file override a value.
func GetDefaultConfig() *AnalysisConfig {
	return &AnalysisConfig{
		OutputDir:          "./output",
		GPUsPerHost:        8,
		GPUCounts:          "1,4,8,16",
		LargeJobThreshold:  8,
		BoundaryConvention: BoundaryEndFirst,
		Workers:            4,
	}
}

func (opts *AnalysisConfig) String() string {
	out, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		panic(err)
	}

	return string(out)
}

// CheckUsage registers every tagged option as a command-line flag, parses os.Args, and merges the YAML file
// named by the yaml option (if any) over the result.
func (opts *AnalysisConfig) CheckUsage() {
	var printInfo bool
	flag.BoolVar(&printInfo, "h", false, "help info?")

	if err := opts.ParseFlags(flag.CommandLine, os.Args[1:]); err != nil {
		panic(err)
	}

	if printInfo {
		fmt.Fprintf(os.Stderr, "Usage: ./trace-analyzer [options]\n")
		fmt.Fprintf(os.Stderr, "Available options:\n")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if opts.YAML != "" {
		if err := opts.LoadYAML(opts.YAML); err != nil {
			panic(err)
		}
	}

	if err := opts.Validate(); err != nil {
		panic(err)
	}
}

// ParseFlags binds each exported field carrying a name tag to a flag of the given set and parses args.
func (opts *AnalysisConfig) ParseFlags(flags *flag.FlagSet, args []string) error {
	oType := reflect.TypeOf(opts).Elem()
	oVal := reflect.ValueOf(opts).Elem()
	numField := oType.NumField()
	for i := 0; i < numField; i++ {
		field := oType.Field(i)
		if field.PkgPath != "" {
			continue
		}

		name := field.Tag.Get(OptionName)
		if name == "" {
			continue
		}
		desc := field.Tag.Get(OptionDesc)
		opt := oVal.Field(i)
		switch field.Type.Kind() {
		case reflect.Bool:
			flags.BoolVar(opt.Addr().Interface().(*bool), name, opt.Bool(), desc)
		case reflect.Int:
			flags.IntVar(opt.Addr().Interface().(*int), name, int(opt.Int()), desc)
		case reflect.Int64:
			flags.Int64Var(opt.Addr().Interface().(*int64), name, opt.Int(), desc)
		case reflect.Float64:
			flags.Float64Var(opt.Addr().Interface().(*float64), name, opt.Float(), desc)
		case reflect.String:
			flags.StringVar(opt.Addr().Interface().(*string), name, opt.String(), desc)
		default:
			return fmt.Errorf("unsupported config type: %v", field.Type.Kind())
		}
	}

	return flags.Parse(args)
}

// LoadYAML reads the file at path and overrides every option the file sets.
func (opts *AnalysisConfig) LoadYAML(path string) error {
	kit := configKit.NewWithOptions("trace-analyzer", func(opt *configKit.Options) {
		opt.TagName = OptionName
		// configKit applies no TagName when DecoderConfig is nil.
		opt.DecoderConfig = &mapstructure.DecoderConfig{}
	})
	kit.AddDriver(yaml.Driver)
	if err := kit.LoadFiles(path); err != nil {
		return err
	}

	fileOpts := &AnalysisConfig{}
	if err := kit.BindStruct("", fileOpts); err != nil {
		return err
	}

	return mergo.Merge(opts, fileOpts, mergo.WithOverride)
}

func (opts *AnalysisConfig) Validate() error {
	if opts.GPUsPerHost <= 0 {
		return fmt.Errorf("gpus-per-host must be positive, got %d", opts.GPUsPerHost)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BoundaryConvention != BoundaryEndFirst && opts.BoundaryConvention != BoundaryStartFirst {
		return fmt.Errorf("unknown boundary-convention \"%s\"", opts.BoundaryConvention)
	}
	if _, err := opts.NormalizeGPUCounts(); err != nil {
		return err
	}

	return nil
}

// NormalizeGPUCounts parses the gpu-counts option into a list of positive job sizes.
func (opts *AnalysisConfig) NormalizeGPUCounts() ([]int, error) {
	if strings.TrimSpace(opts.GPUCounts) == "" {
		return nil, fmt.Errorf("gpu-counts must not be empty")
	}

	parts := strings.Split(opts.GPUCounts, ",")
	counts := make([]int, 0, len(parts))
	for _, part := range parts {
		count, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid gpu-counts entry \"%s\": %w", part, err)
		}
		if count <= 0 {
			return nil, fmt.Errorf("gpu-counts entries must be positive, got %d", count)
		}
		counts = append(counts, count)
	}

	return counts, nil
}
