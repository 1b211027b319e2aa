package main

import (
	"context"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/abnf"
	"github.com/slowlang/abnf/analyze"
	"github.com/slowlang/abnf/format"
	"github.com/slowlang/abnf/gen"
	"github.com/slowlang/abnf/grammar"
	"github.com/slowlang/abnf/parse"
)

func main() {
	checkCmd := &cli.Command{
		Name:        "check",
		Description: "analyze grammar objects, print rule dependencies and attributes",
		Action:      checkAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("mode", "index", "attributes order: index, type or alpha"),
			cli.NewFlag("alpha", false, "list dependencies by name"),
			cli.NewFlag("ops", false, "print opcodes"),
		},
	}

	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "parse input file with the grammar: parse <grammar.yaml> <input>",
		Action:      parseAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("start", "", "start rule, the first rule by default"),
			cli.NewFlag("sub-begin", 0, "first input code point to parse"),
			cli.NewFlag("sub-end", -1, "end of the input to parse, negative for the input end"),
			cli.NewFlag("charset", "utf-8", "input charset"),
			cli.NewFlag("max-depth", 0, "parse tree depth limit"),
			cli.NewFlag("max-hits", 0, "node hits limit"),
			cli.NewFlag("trace", false, "log every opcode evaluation"),
			cli.NewFlag("stats", false, "print node hit statistics"),
		},
	}

	genCmd := &cli.Command{
		Name:        "gen",
		Description: "generate Go code building the grammar",
		Action:      genAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("pkg", "grammar", "package name"),
			cli.NewFlag("func", "Grammar", "function name"),
			cli.NewFlag("out", "", "output file, stdout if empty"),
		},
	}

	app := &cli.Command{
		Name:        "abnf",
		Description: "abnf is a tool for checking and running grammars",
		Flags: []*cli.Flag{
			cli.NewFlag("v", "", "verbosity topics"),
		},
		Commands: []*cli.Command{
			checkCmd,
			parseCmd,
			genCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func setup(c *cli.Command) context.Context {
	tlog.SetVerbosity(c.String("v"))

	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	return ctx
}

func checkAct(c *cli.Command) (err error) {
	ctx := setup(c)

	var bad int

	for _, a := range c.Args {
		g, err := grammar.LoadFile(a)
		if err != nil {
			return errors.Wrap(err, "load %v", a)
		}

		res, err := analyze.Analyze(ctx, g)
		if res == nil {
			return errors.Wrap(err, "analyze %v", a)
		}

		var b []byte

		b = append(b, a...)
		b = append(b, ":\n\n"...)

		if c.Bool("ops") {
			b = format.Grammar(b, g)
			b = append(b, '\n')
		}

		b = format.Deps(b, g, res.Deps, c.Bool("alpha"))
		b = append(b, '\n')
		b = format.Attributes(b, res.Attrs, c.String("mode"))

		if len(res.Diagnostics) != 0 {
			bad++

			b = append(b, '\n')
			b = format.Diagnostics(b, res.Diagnostics)
		}

		_, _ = os.Stdout.Write(b)
	}

	if bad != 0 {
		return errors.New("%d grammars have diagnostics", bad)
	}

	return nil
}

func parseAct(c *cli.Command) (err error) {
	ctx := setup(c)

	if len(c.Args) != 2 {
		return errors.New("expected grammar and input files")
	}

	g, _, err := abnf.CompileFile(ctx, c.Args[0])
	if err != nil {
		return errors.Wrap(err, "compile %v", c.Args[0])
	}

	data, err := os.ReadFile(c.Args[1])
	if err != nil {
		return errors.Wrap(err, "read input")
	}

	input, err := abnf.DecodeInput(data, c.String("charset"))
	if err != nil {
		return errors.Wrap(err, "decode input")
	}

	p, err := parse.New(g)
	if err != nil {
		return errors.Wrap(err, "new parser")
	}

	p.SetTreeDepthLimit(c.Int("max-depth"))
	p.SetNodeHitLimit(c.Int("max-hits"))

	if c.Bool("trace") {
		p.AttachTrace(parse.NewTlogTracer(ctx, input))
	}

	var stats *parse.Stats

	if c.Bool("stats") {
		stats = parse.NewStats()
		p.AttachStats(stats)
	}

	opts := parse.Options{
		Start:    c.String("start"),
		SubBegin: c.Int("sub-begin"),
	}

	if e := c.Int("sub-end"); e >= 0 {
		opts.SubEnd = parse.End(e)
	}

	res, err := p.Parse(ctx, input, opts)
	if err != nil {
		return errors.Wrap(err, "parse")
	}

	b := format.Result(nil, res)

	if stats != nil {
		b = append(b, '\n')
		b = format.Stats(b, stats)
	}

	_, _ = os.Stdout.Write(b)

	if !res.Success {
		return errors.New("input does not match")
	}

	return nil
}

func genAct(c *cli.Command) (err error) {
	ctx := setup(c)

	if len(c.Args) != 1 {
		return errors.New("expected one grammar file")
	}

	g, _, err := abnf.CompileFile(ctx, c.Args[0])
	if err != nil {
		return errors.Wrap(err, "compile %v", c.Args[0])
	}

	f, err := gen.Generate(c.String("pkg"), c.String("func"), g)
	if err != nil {
		return errors.Wrap(err, "generate")
	}

	if out := c.String("out"); out != "" {
		return f.Save(out)
	}

	return f.Render(os.Stdout)
}
