package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tournevent/oto/pkg/oto"
)

var (
	trackCmd = &cobra.Command{
		Use:   "track TRACKING_NUMBER",
		Short: "Track a shipment",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(ctx context.Context, c *oto.Client, cmd *cobra.Command, args []string) error {
			return printResult(cmd)(c.TrackShipment(ctx, args[0]))
		}),
	}

	multiTrackCmd = &cobra.Command{
		Use:   "multi-track TRACKING_NUMBER...",
		Short: "Track several shipments with one batch request",
		Args:  cobra.MinimumNArgs(1),
		RunE: withClient(func(ctx context.Context, c *oto.Client, cmd *cobra.Command, args []string) error {
			if concurrency, _ := cmd.Flags().GetInt("each"); concurrency > 0 {
				results, errs := c.Tracking.TrackEach(ctx, args, concurrency)
				for _, err := range errs {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
				if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
				if len(errs) > 0 {
					return fmt.Errorf("%d of %d lookups failed", len(errs), len(args))
				}
				return nil
			}
			return printResult(cmd)(c.MultiTrack(ctx, args))
		}),
	}

	trackRangeCmd = &cobra.Command{
		Use:   "track-range",
		Short: "List tracking records between two dates",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, c *oto.Client, cmd *cobra.Command, _ []string) error {
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")
			page, _ := cmd.Flags().GetInt("page")
			limit, _ := cmd.Flags().GetInt("limit")
			return printResult(cmd)(c.TrackByDateRange(ctx, start, end, page, limit))
		}),
	}

	createCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a shipment from a json or yaml file",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, c *oto.Client, cmd *cobra.Command, _ []string) error {
			var data oto.ShipmentData
			if err := readPayloadFlag(cmd, &data); err != nil {
				return err
			}
			return printResult(cmd)(c.CreateShipment(ctx, data))
		}),
	}

	updateCmd = &cobra.Command{
		Use:   "update TRACKING_NUMBER",
		Short: "Update a shipment from a json or yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(ctx context.Context, c *oto.Client, cmd *cobra.Command, args []string) error {
			var data oto.Payload
			if err := readPayloadFlag(cmd, &data); err != nil {
				return err
			}
			return printResult(cmd)(c.UpdateShipment(ctx, args[0], data))
		}),
	}

	cancelCmd = &cobra.Command{
		Use:   "cancel TRACKING_NUMBER",
		Short: "Cancel a shipment",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(ctx context.Context, c *oto.Client, cmd *cobra.Command, args []string) error {
			return printResult(cmd)(c.CancelShipment(ctx, args[0]))
		}),
	}

	couriersCmd = &cobra.Command{
		Use:   "couriers",
		Short: "List supported courier companies",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, c *oto.Client, cmd *cobra.Command, _ []string) error {
			return printResult(cmd)(c.ListCouriers(ctx))
		}),
	}

	priceCmd = &cobra.Command{
		Use:   "price",
		Short: "Calculate shipping prices",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, c *oto.Client, cmd *cobra.Command, _ []string) error {
			var req oto.PriceRequest
			if file, _ := cmd.Flags().GetString("file"); file != "" {
				if err := readPayload(file, &req); err != nil {
					return err
				}
			}
			if v, _ := cmd.Flags().GetString("from"); v != "" {
				req.OriginCity = v
			}
			if v, _ := cmd.Flags().GetString("to"); v != "" {
				req.DestinationCity = v
			}
			if v, _ := cmd.Flags().GetFloat64("desi"); v != 0 {
				req.Desi = v
			}
			if v, _ := cmd.Flags().GetString("courier"); v != "" {
				req.CourierCompany = v
			}
			return printResult(cmd)(c.CalculatePrice(ctx, req))
		}),
	}

	barcodeCmd = &cobra.Command{
		Use:   "barcode TRACKING_NUMBER",
		Short: "Download a shipment barcode",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(ctx context.Context, c *oto.Client, cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")
			options, _ := cmd.Flags().GetStringToString("option")

			doc, err := c.GenerateBarcode(ctx, args[0], oto.BarcodeFormat(format), options)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			}
			if err := os.WriteFile(out, doc, 0o644); err != nil {
				return fmt.Errorf("writing barcode: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", len(doc), out)
			return nil
		}),
	}

	webhookCmd = &cobra.Command{
		Use:   "webhook",
		Short: "Submit a webhook payload from a json or yaml file",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, c *oto.Client, cmd *cobra.Command, _ []string) error {
			var data oto.Payload
			if err := readPayloadFlag(cmd, &data); err != nil {
				return err
			}
			return printResult(cmd)(c.HandleWebhook(ctx, data))
		}),
	}
)

func init() {
	multiTrackCmd.Flags().Int("each", 0, "track each number with its own request, this many at a time")

	trackRangeCmd.Flags().String("start", "", "start date (YYYY-MM-DD)")
	trackRangeCmd.Flags().String("end", "", "end date (YYYY-MM-DD)")
	trackRangeCmd.Flags().Int("page", oto.DefaultPage, "page number")
	trackRangeCmd.Flags().Int("limit", oto.DefaultLimit, "page size")
	_ = trackRangeCmd.MarkFlagRequired("start")
	_ = trackRangeCmd.MarkFlagRequired("end")

	for _, cmd := range []*cobra.Command{createCmd, updateCmd, webhookCmd} {
		cmd.Flags().StringP("file", "f", "", "payload file (.json, .yaml or .yml, - for stdin)")
		_ = cmd.MarkFlagRequired("file")
	}

	priceCmd.Flags().StringP("file", "f", "", "price request file (.json, .yaml or .yml)")
	priceCmd.Flags().String("from", "", "origin city")
	priceCmd.Flags().String("to", "", "destination city")
	priceCmd.Flags().Float64("desi", 0, "volumetric weight")
	priceCmd.Flags().String("courier", "", "courier company")

	barcodeCmd.Flags().String("format", string(oto.BarcodeFormatPDF), "pdf or png")
	barcodeCmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	barcodeCmd.Flags().StringToString("option", nil, "extra query options, key=value")

	rootCmd.AddCommand(trackCmd, multiTrackCmd, trackRangeCmd, createCmd, updateCmd,
		cancelCmd, couriersCmd, priceCmd, barcodeCmd, webhookCmd)
}

type clientFunc func(ctx context.Context, c *oto.Client, cmd *cobra.Command, args []string) error

// withClient loads configuration and builds a client before running fn.
func withClient(fn clientFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := initCLILogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		client, err := newClient(cfg, logger, false)
		if err != nil {
			return err
		}
		return fn(cmd.Context(), client, cmd, args)
	}
}

func printResult(cmd *cobra.Command) func(oto.Response, error) error {
	return func(resp oto.Response, err error) error {
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), resp)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readPayloadFlag(cmd *cobra.Command, v any) error {
	file, _ := cmd.Flags().GetString("file")
	if file == "-" {
		return decodePayload(cmd.InOrStdin(), ".json", v)
	}
	return readPayload(file, v)
}

func readPayload(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening payload: %w", err)
	}
	defer f.Close()
	return decodePayload(f, filepath.Ext(path), v)
}

// decodePayload reads json, or yaml for .yaml/.yml files. Yaml is converted
// to json first so payload types decode the same way from both.
func decodePayload(r io.Reader, ext string, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("parsing yaml payload: %w", err)
		}
		if data, err = json.Marshal(generic); err != nil {
			return fmt.Errorf("converting yaml payload: %w", err)
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing json payload: %w", err)
	}
	return nil
}
