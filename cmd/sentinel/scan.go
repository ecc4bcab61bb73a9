package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	appscans "github.com/bryanwahyu/sentinelai/internal/application/scans"
	"github.com/bryanwahyu/sentinelai/internal/domain/analysis"
	"github.com/bryanwahyu/sentinelai/internal/infra/textenc"
)

type scanOpts struct {
	Modality string
	Text     string
	URL      string
	Key      string
	SMS      string
	Image    string
	File     string
	Archive  bool
}

func newScanCommand(root *rootOpts) *cobra.Command {
	opts := &scanOpts{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single analysis and print the result as JSON",
		Example: `  sentinel scan -m url --url http://paypa1-secure.xyz/login
  sentinel scan -m text --text - < suspicious.eml
  sentinel scan -m qr --image ./poster.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runScan(cmd, root, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.Modality, "modality", "m", "", "text|url|apikey|image|sms|qr|file (required)")
	f.StringVar(&opts.Text, "text", "", "Email content; '-' reads stdin")
	f.StringVar(&opts.URL, "url", "", "URL to inspect")
	f.StringVar(&opts.Key, "key", "", "API key or code snippet; '-' reads stdin")
	f.StringVar(&opts.SMS, "sms", "", "SMS message text")
	f.StringVar(&opts.Image, "image", "", "Path to a screenshot or QR code image")
	f.StringVar(&opts.File, "file", "", "Path to a text file to audit")
	f.BoolVar(&opts.Archive, "archive", false, "Archive the result and send alerts using the configured backends")
	cmd.MarkFlagRequired("modality")
	return cmd
}

func runScan(cmd *cobra.Command, root *rootOpts, opts *scanOpts) error {
	ctx := cmd.Context()
	m, err := analysis.ParseModality(opts.Modality)
	if err != nil {
		return err
	}

	in, err := opts.input(cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := loadApp(ctx, root, opts.Archive)
	if err != nil {
		return err
	}
	defer a.Close()

	o := appscans.NewOrchestrator("cli", a.deps())
	if err := o.SelectModality(m); err != nil {
		return err
	}
	if err := o.SetInput(in); err != nil {
		return err
	}
	item, err := o.Submit(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(item)
}

func (o *scanOpts) input(stdin io.Reader) (appscans.Input, error) {
	in := appscans.Input{URL: o.URL, SMS: o.SMS}

	var err error
	if in.Text, err = orStdin(o.Text, stdin); err != nil {
		return in, err
	}
	if in.Key, err = orStdin(o.Key, stdin); err != nil {
		return in, err
	}

	if o.Image != "" {
		raw, err := os.ReadFile(o.Image)
		if err != nil {
			return in, fmt.Errorf("read image: %w", err)
		}
		in.Image = "data:" + http.DetectContentType(raw) + ";base64," + base64.StdEncoding.EncodeToString(raw)
	}
	if o.File != "" {
		raw, err := os.ReadFile(o.File)
		if err != nil {
			return in, fmt.Errorf("read file: %w", err)
		}
		if textenc.Binary(raw) {
			return in, fmt.Errorf("%s does not look like a text file", o.File)
		}
		content, err := textenc.Decode(raw)
		if err != nil {
			return in, fmt.Errorf("decode file: %w", err)
		}
		in.FileName = filepath.Base(o.File)
		in.FileContent = content
	}
	return in, nil
}

func orStdin(v string, stdin io.Reader) (string, error) {
	if v != "-" {
		return v, nil
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(raw), nil
}
