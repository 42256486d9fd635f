package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-struk/internal/catalog"
	"github.com/noah-isme/backend-struk/internal/obs"
	"github.com/noah-isme/backend-struk/internal/receipt"
	"github.com/noah-isme/backend-struk/internal/render"
)

// receiptgen renders a receipt request offline. The request JSON matches the
// body of POST /api/v1/receipts/export.
//
//	receiptgen -in request.json -format pdf -out receipt.pdf
func main() {
	_ = godotenv.Load()

	in := flag.String("in", "-", "request JSON file, - for stdin")
	out := flag.String("out", "-", "output file, - for stdout")
	format := flag.String("format", "png", "png or pdf")
	templates := flag.String("templates", os.Getenv("TEMPLATES_FILE"), "optional templates YAML")
	seed := flag.Uint64("seed", 0, "seed override, 0 keeps the request seed")
	flag.Parse()

	logger := obs.NewLogger("console", "info")

	req, err := readRequest(*in)
	if err != nil {
		logger.Fatal().Err(err).Msg("read request")
	}
	if *seed != 0 {
		req.Seed = seed
	}

	var source []byte
	if *templates != "" {
		if source, err = os.ReadFile(*templates); err != nil {
			logger.Fatal().Err(err).Msg("read templates")
		}
	}
	cat, err := catalog.NewService(catalog.ServiceConfig{Source: source})
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalog")
	}
	svc, err := receipt.NewService(receipt.Config{Catalog: cat, Logger: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("init receipt service")
	}
	rec, err := svc.Build(context.Background(), req)
	if err != nil {
		logger.Fatal().Err(err).Msg("build receipt")
	}

	w := io.Writer(os.Stdout)
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			logger.Fatal().Err(err).Msg("create output")
		}
		defer f.Close()
		w = f
	}

	switch *format {
	case "png":
		err = render.PNG(w, rec)
	case "pdf":
		err = render.PDF(w, rec, time.Now())
	default:
		err = fmt.Errorf("unsupported format %q", *format)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("render")
	}
	logger.Info().
		Str("receipt_id", rec.ID).
		Str("template", rec.Template).
		Str("total", rec.Amounts.Total.StringFixed(2)).
		Int("lines", len(rec.Items)).
		Msg("receipt rendered")
}

func readRequest(path string) (receipt.Request, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return receipt.Request{}, err
		}
		defer f.Close()
		r = f
	}
	var req receipt.Request
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return receipt.Request{}, err
	}
	return req, nil
}
