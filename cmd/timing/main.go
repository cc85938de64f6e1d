// Command timing generates timing samples from an RSA signer and runs
// the offline bit-recovery attack against them.
//
// Generate a sample file:
//
//	timing csv -p 131 -q 191 -e 3 -count 10000 -variant sleep -out data.csv
//
// Attack it:
//
//	timing attack -in data.csv -n 25021 -threshold 2ms -max-bits 15
//
// Exit codes: 0 success, 1 arithmetic precondition violation, 2 I/O or
// interrupt, 3 recovery completed but failed verification, 4 not
// enough samples to classify.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/golang/glog"
	"github.com/pkg/profile"
	"github.com/rodaine/table"

	"github.com/sidechan/rsa-timing/internal/sampler"
	"github.com/sidechan/rsa-timing/pkg/attack"
	"github.com/sidechan/rsa-timing/pkg/bigint"
	"github.com/sidechan/rsa-timing/pkg/montgomery"
	"github.com/sidechan/rsa-timing/pkg/rsa"
)

const (
	exitOK           = 0
	exitArith        = 1
	exitIO           = 2
	exitUnverified   = 3
	exitInsufficient = 4
)

func main() {
	// glog writes to files by default; this is a CLI.
	_ = flag.Set("logtostderr", "true")

	if len(os.Args) < 2 {
		usage()
		os.Exit(exitIO)
	}
	switch os.Args[1] {
	case "csv":
		runCSV(os.Args[2:])
	case "attack":
		runAttack(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(exitIO)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  timing csv    -p <prime> -q <prime> -e <exponent> -count <n> [options]
  timing attack -in <file> -n <modulus> -threshold <dur> [options]

Run "timing <command> -h" for the command's options.
`)
}

func fail(code int, format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}

// arithCode maps an error to exit code 1 for arithmetic precondition
// violations and 2 for everything else.
func arithCode(err error) int {
	if errors.Is(err, montgomery.ErrInvalidModulus) ||
		errors.Is(err, rsa.ErrNonInvertible) ||
		errors.Is(err, bigint.ErrOverflow) ||
		errors.Is(err, bigint.ErrDivByZero) {
		return exitArith
	}
	return exitIO
}

func runCSV(args []string) {
	fs := flag.NewFlagSet("csv", flag.ExitOnError)
	var (
		pStr       = fs.String("p", "", "first prime factor (decimal)")
		qStr       = fs.String("q", "", "second prime factor (decimal)")
		eStr       = fs.String("e", "65537", "public exponent (decimal)")
		count      = fs.Int("count", 10000, "number of samples to generate")
		out        = fs.String("out", "data.csv", "output CSV path")
		variantStr = fs.String("variant", "sleep", "exponentiation variant (plain, sleep, ladder)")
		sleep      = fs.Duration("sleep", rsa.DefaultSleep, "per-product sleep for the sleep variant")
		workers    = fs.Int("workers", 0, "parallel workers (0 = one per CPU)")
		cpuprofile = fs.Bool("cpuprofile", false, "write a CPU profile to the current directory")
		verbose    = fs.Bool("verbose", false, "log progress")
	)
	fs.Parse(args)
	if *verbose {
		_ = flag.Set("v", "1")
	}
	if *pStr == "" || *qStr == "" {
		fs.Usage()
		os.Exit(exitIO)
	}

	p, err := bigint.FromString(*pStr)
	if err != nil {
		fail(exitArith, "bad -p: %v", err)
	}
	q, err := bigint.FromString(*qStr)
	if err != nil {
		fail(exitArith, "bad -q: %v", err)
	}
	e, err := bigint.FromString(*eStr)
	if err != nil {
		fail(exitArith, "bad -e: %v", err)
	}
	variant, err := rsa.ParseVariant(*variantStr)
	if err != nil {
		fail(exitIO, "%v", err)
	}

	key, err := rsa.NewKey(p, q, e)
	if err != nil {
		fail(exitArith, "key construction failed: %v", err)
	}
	// Reject an even modulus here rather than on the first signature.
	if _, err := montgomery.New(key.N); err != nil {
		fail(exitArith, "%v", err)
	}

	if *cpuprofile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	glog.V(1).Infof("signing %d messages with n=%s variant=%s", *count, key.N, variant)
	signer := rsa.NewSigner(key, variant).WithSleep(*sleep)
	collector := &sampler.Collector{Signer: signer, Workers: *workers}

	start := time.Now()
	samples, err := collector.Collect(ctx, *count)
	if err != nil {
		fail(arithCode(err), "collection failed: %v", err)
	}
	if err := attack.WriteCSVFile(*out, samples); err != nil {
		fail(exitIO, "write failed: %v", err)
	}
	color.Green("✓ wrote %d samples to %s (variant=%s, %s)", len(samples), *out, variant, time.Since(start).Round(time.Millisecond))
}

func runAttack(args []string) {
	fs := flag.NewFlagSet("attack", flag.ExitOnError)
	var (
		in        = fs.String("in", "data.csv", "sample file to read")
		format    = fs.String("format", "csv", "sample file format (csv or json)")
		nStr      = fs.String("n", "", "public modulus (decimal); derived from -p and -q when given")
		pStr      = fs.String("p", "", "first prime factor, for verification (decimal)")
		qStr      = fs.String("q", "", "second prime factor, for verification (decimal)")
		eStr      = fs.String("e", "65537", "public exponent (decimal)")
		threshold = fs.Duration("threshold", 0, "mean-gap separation threshold (e.g. 2ms or 4307361ns)")
		opCost    = fs.Duration("op-cost", 0, "per-operation cost to subtract as residual correction")
		maxBits   = fs.Int("max-bits", 0, "bits to recover (0 = modulus bit length)")
		minClass  = fs.Int("min-class", attack.DefaultMinClass, "per-class sample floor")
		verbose   = fs.Bool("verbose", false, "log per-round decisions")
	)
	fs.Parse(args)
	if *verbose {
		_ = flag.Set("v", "1")
	}
	if *threshold <= 0 {
		fail(exitIO, "a positive -threshold is required")
	}

	var phi bigint.Uint
	verifiable := false
	var n bigint.Uint
	if *pStr != "" && *qStr != "" {
		p, err := bigint.FromString(*pStr)
		if err != nil {
			fail(exitArith, "bad -p: %v", err)
		}
		q, err := bigint.FromString(*qStr)
		if err != nil {
			fail(exitArith, "bad -q: %v", err)
		}
		nw := p.Mul(q)
		if !nw.Hi().IsZero() {
			fail(exitArith, "modulus: %v", bigint.ErrOverflow)
		}
		one := bigint.FromUint64(1)
		pm1, _ := p.Sub(one, 0)
		qm1, _ := q.Sub(one, 0)
		n = nw.Lo()
		phi = pm1.Mul(qm1).Lo()
		verifiable = true
	} else if *nStr != "" {
		var err error
		n, err = bigint.FromString(*nStr)
		if err != nil {
			fail(exitArith, "bad -n: %v", err)
		}
	} else {
		fail(exitIO, "the public modulus is required: pass -n, or -p and -q")
	}

	var parser attack.SampleParser
	switch *format {
	case "csv":
		parser = &attack.CSVParser{}
	case "json":
		parser = &attack.JSONParser{}
	default:
		fail(exitIO, "unknown format %q", *format)
	}
	samples, err := parser.ParseSamples(*in)
	if err != nil {
		fail(exitIO, "reading %s: %v", *in, err)
	}
	glog.V(1).Infof("loaded %d samples from %s", len(samples), *in)

	rec, err := attack.New(n)
	if err != nil {
		fail(exitArith, "%v", err)
	}
	rec = rec.WithThreshold(*threshold).WithMinClassSize(*minClass)
	if *maxBits > 0 {
		rec = rec.WithMaxBits(*maxBits)
	}
	if *opCost > 0 {
		rec = rec.WithOpCost(*opCost)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := rec.Recover(ctx, samples)
	switch {
	case err == nil:
	case errors.Is(err, attack.ErrInsufficientSamples):
		printResult(result)
		fail(exitInsufficient, "%v", err)
	case errors.Is(err, context.Canceled):
		printResult(result)
		fail(exitIO, "interrupted; %d bits recovered", len(result.Bits))
	default:
		fail(arithCode(err), "%v", err)
	}

	printResult(result)

	if !verifiable {
		color.Yellow("no factors supplied; recovery left unverified")
		os.Exit(exitOK)
	}
	e, err := bigint.FromString(*eStr)
	if err != nil {
		fail(exitArith, "bad -e: %v", err)
	}
	if attack.VerifyExponent(e, result.D, phi) {
		color.Green("✓ verified: e*d == 1 (mod phi)")
		os.Exit(exitOK)
	}
	fail(exitUnverified, "✗ verification failed: e*d != 1 (mod phi)")
}

func printResult(result *attack.Result) {
	if result == nil {
		return
	}
	var sb strings.Builder
	for _, b := range result.Bits {
		sb.WriteByte('0' + byte(b))
	}
	fmt.Printf("recovered %d bits (MSB first): %s\n", len(result.Bits), sb.String())
	fmt.Printf("d = %s\n", result.D)

	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	tbl := table.New("round", "bit", "slow", "fast", "gap").WithHeaderFormatter(headerFmt)
	for _, r := range result.Rounds {
		tbl.AddRow(r.Index, r.Bit, r.SlowCount, r.FastCount, r.Gap)
	}
	tbl.Print()
}
