package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/binpack3d/internal/logging"
	"github.com/eugenenazirov/binpack3d/internal/packing"
)

// requestFile is the on-disk request. JSON files parse too, since YAML is a
// superset of JSON.
type requestFile struct {
	Items     []fileItem        `yaml:"items"`
	Container packing.Container `yaml:"container"`
	MaxWeight float64           `yaml:"max_weight"`
	Method    string            `yaml:"method"`
	Lookahead int               `yaml:"lookahead"`
	Order     string            `yaml:"order"`
}

type fileItem struct {
	ID     string  `yaml:"id"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Depth  float64 `yaml:"depth"`
	Weight float64 `yaml:"weight"`
	// AllowRotation defaults to true when omitted.
	AllowRotation *bool `yaml:"allow_rotation"`
}

type options struct {
	path         string
	stdin        bool
	method       string
	lookahead    int
	workingRange float64
	order        string
	logLevel     string
	indent       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "binpack:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	logger, err := logging.New(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	var source io.Reader
	if opts.stdin {
		source = stdin
	}
	req, err := loadRequest(opts.path, source)
	if err != nil {
		return err
	}
	if err := applyFlags(&req, opts); err != nil {
		return err
	}

	res, err := packing.Run(ctx, req,
		packing.WithWorkingRange(opts.workingRange),
		packing.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	logger.Debug("request packed", zap.String("source", opts.source()), zap.Int("bins_used", res.BinsUsed))

	enc := json.NewEncoder(stdout)
	if opts.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res)
}

func parseArgs(args []string) (options, error) {
	var opts options

	app := kingpin.New("binpack", "Pack boxes from a YAML or JSON request file and print the layout as JSON")
	app.Arg("request", "Request file (YAML or JSON)").StringVar(&opts.path)
	app.Flag("stdin", "Read the request from standard input instead of a file").BoolVar(&opts.stdin)
	app.Flag("method", "Packing method (best_lookahead, baf, bssf, blsf); overrides the file").StringVar(&opts.method)
	app.Flag("lookahead", "Lookahead window for best_lookahead; overrides the file").Default("0").IntVar(&opts.lookahead)
	app.Flag("working-range", "Rescale containers so the largest dimension is this many units (0 packs unscaled)").
		Default("0").Float64Var(&opts.workingRange)
	app.Flag("order", "Item order (input, volume_desc); overrides the file").StringVar(&opts.order)
	app.Flag("log-level", "Log level written to stderr").Default("warn").StringVar(&opts.logLevel)
	app.Flag("indent", "Indent the JSON output").BoolVar(&opts.indent)

	if _, err := app.Parse(args); err != nil {
		return options{}, err
	}
	switch {
	case opts.stdin && opts.path != "":
		return options{}, errRequestSources
	case !opts.stdin && opts.path == "":
		return options{}, errNoRequest
	}
	return opts, nil
}

var (
	errNoRequest      = errors.New("a request file or --stdin is required")
	errRequestSources = errors.New("pass either a request file or --stdin, not both")
)

func (o options) source() string {
	if o.stdin {
		return "stdin"
	}
	return o.path
}

// loadRequest reads from stdin when it is not nil and from path otherwise.
func loadRequest(path string, stdin io.Reader) (packing.Request, error) {
	var (
		data []byte
		err  error
	)
	if stdin != nil {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return packing.Request{}, fmt.Errorf("read request: %w", err)
	}

	var file requestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return packing.Request{}, fmt.Errorf("parse request: %w", err)
	}

	req := packing.Request{
		Items:     make([]packing.Item, len(file.Items)),
		Container: file.Container,
		MaxWeight: file.MaxWeight,
		Lookahead: file.Lookahead,
	}
	for i, it := range file.Items {
		rotate := true
		if it.AllowRotation != nil {
			rotate = *it.AllowRotation
		}
		req.Items[i] = packing.Item{
			ID:            it.ID,
			Width:         it.Width,
			Height:        it.Height,
			Depth:         it.Depth,
			Weight:        it.Weight,
			AllowRotation: rotate,
		}
	}
	if req.Method, err = packing.ParseMethod(file.Method); err != nil {
		return packing.Request{}, err
	}
	if req.Order, err = packing.ParseOrder(file.Order); err != nil {
		return packing.Request{}, err
	}
	return req, nil
}

func applyFlags(req *packing.Request, opts options) error {
	if opts.method != "" {
		m, err := packing.ParseMethod(opts.method)
		if err != nil {
			return err
		}
		req.Method = m
	}
	if opts.lookahead != 0 {
		req.Lookahead = opts.lookahead
	}
	if opts.order != "" {
		o, err := packing.ParseOrder(opts.order)
		if err != nil {
			return err
		}
		req.Order = o
	}
	return nil
}
