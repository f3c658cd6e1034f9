package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bft-labs/logship/pkg/sinks/httpsink"
)

var describeCmd = &cobra.Command{
	Use:   "describe <sink-id>",
	Short: "Print the HTTP request a sink resolves to, with secrets masked",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribe,
}

func runDescribe(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	topo, err := loadTopology()
	if err != nil {
		return err
	}

	spec, ok := topo.Sink(args[0])
	if !ok {
		return fmt.Errorf("no sink %q in %s", args[0], cfg.TopologyPath)
	}
	d, ok := spec.Config.(httpsink.Describer)
	if !ok {
		return fmt.Errorf("sink %q (%s) does not send over HTTP", spec.ID, spec.Kind)
	}
	desc, err := d.Descriptor()
	if err != nil {
		return err
	}

	writeDescriptor(cmd.OutOrStdout(), spec.ID, spec.Kind, desc.Redacted())
	return nil
}

func writeDescriptor(out io.Writer, id, kind string, desc httpsink.Config) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "SINK\t%s (%s)\n", id, kind)
	fmt.Fprintf(w, "REQUEST\t%s %s\n", orDefault(string(desc.Method), string(httpsink.MethodPost)), desc.URI)
	for _, h := range desc.Headers {
		fmt.Fprintf(w, "HEADER\t%s: %s\n", h.Name, h.Value)
	}
	fmt.Fprintf(w, "ENCODING\t%s\n", desc.Encoding)
	fmt.Fprintf(w, "COMPRESSION\t%s\n", orDefault(string(desc.Compression), string(httpsink.CompressionNone)))

	size := uint64(httpsink.DefaultBatchSize)
	if desc.Batch.Size != nil {
		size = uint64(*desc.Batch.Size)
	}
	timeout := httpsink.DefaultBatchTimeout
	if desc.Batch.Timeout != nil {
		timeout = *desc.Batch.Timeout
	}
	fmt.Fprintf(w, "BATCH\t%s or %s\n", humanize.IBytes(size), timeout)

	r := desc.Request
	fmt.Fprintf(w, "IN FLIGHT\t%s\n", intOr(r.InFlightLimit, httpsink.DefaultInFlightLimit))
	fmt.Fprintf(w, "RATE LIMIT\t%s per %s\n",
		uintOr(r.RateLimitNum, httpsink.DefaultRateLimitNum),
		secsOr(r.RateLimitDurationSecs, httpsink.DefaultRateLimitDuration))
	fmt.Fprintf(w, "TIMEOUT\t%s\n", secsOr(r.TimeoutSecs, httpsink.DefaultTimeout))
	fmt.Fprintf(w, "RETRIES\t%s, backoff %s\n",
		intOr(r.RetryAttempts, httpsink.DefaultRetryAttempts),
		secsOr(r.RetryBackoffSecs, httpsink.DefaultRetryBackoff))
	if desc.BasicAuth != nil {
		fmt.Fprintf(w, "BASIC AUTH\t%s:%s\n", desc.BasicAuth.User, desc.BasicAuth.Password)
	}
	if desc.TLS != nil {
		fmt.Fprintf(w, "TLS\tca_file=%q insecure_skip_verify=%t\n", desc.TLS.CAFile, desc.TLS.InsecureSkipVerify)
	}
	if desc.HealthcheckURI != "" {
		fmt.Fprintf(w, "HEALTHCHECK\tGET %s\n", desc.HealthcheckURI)
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// The helpers below mark values that fall back to the transport default.

func intOr(v *int, def int) string {
	if v == nil {
		return fmt.Sprintf("%d (default)", def)
	}
	return humanize.Comma(int64(*v))
}

func uintOr(v *uint64, def uint64) string {
	if v == nil {
		return fmt.Sprintf("%d (default)", def)
	}
	return humanize.Comma(int64(*v))
}

func secsOr(v *uint64, def time.Duration) string {
	if v == nil {
		return def.String() + " (default)"
	}
	return (time.Duration(*v) * time.Second).String()
}
