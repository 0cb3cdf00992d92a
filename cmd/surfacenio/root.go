package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shii9/SurfaceNio/internal/config"
	"github.com/shii9/SurfaceNio/internal/dns"
	httpprobe "github.com/shii9/SurfaceNio/internal/http"
	"github.com/shii9/SurfaceNio/internal/logger"
	"github.com/shii9/SurfaceNio/internal/output"
	"github.com/shii9/SurfaceNio/internal/pipeline"
	"github.com/shii9/SurfaceNio/internal/subdomain"
	"github.com/shii9/SurfaceNio/internal/targets"
	"github.com/shii9/SurfaceNio/internal/whois"
)

type flagValues struct {
	configPath string

	domain  string
	domains string
	output  string
	format  string

	concurrency   int
	timeout       time.Duration
	passiveOnly   bool
	wordlist      string
	maxSubdomains int
	userAgent     string
	noTLS         bool
	resolvers     []string
	sources       []string
	axfr          bool
	whois         bool
	proxy         string

	logLevel  string
	logFormat string
	logFile   string
}

func newRootCommand() *cobra.Command {
	var fv flagValues

	cmd := &cobra.Command{
		Use:   "surfacenio",
		Short: "Map the external attack surface of one or more domains",
		Long: "surfacenio discovers subdomains from certificate transparency (and optionally a wordlist\n" +
			"or zone transfer), resolves them, probes HTTP and HTTPS, and tags each host with risk indicators.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Flags(), fv)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	bindFlags(cmd.Flags(), &fv)
	cmd.MarkFlagsMutuallyExclusive("domain", "domains")
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func bindFlags(fl *pflag.FlagSet, fv *flagValues) {
	def := config.Default()

	targetFlags := pflag.NewFlagSet("Targets", pflag.ContinueOnError)
	targetFlags.StringVarP(&fv.domain, "domain", "d", "", "Single apex domain to scan")
	targetFlags.StringVar(&fv.domains, "domains", "", "File with one domain per line")
	targetFlags.StringVarP(&fv.output, "output", "o", "", "Output file path")
	targetFlags.StringVar(&fv.format, "format", "", "Output format: json, csv, xlsx or sqlite (default: from extension)")
	fl.AddFlagSet(targetFlags)

	scanFlags := pflag.NewFlagSet("Scan", pflag.ContinueOnError)
	scanFlags.IntVar(&fv.concurrency, "concurrency", def.Concurrency, "Maximum concurrent lookups and probes")
	scanFlags.Var(newSecondsValue(def.Timeout, &fv.timeout), "timeout", "Per-operation timeout in seconds, or a duration such as 1500ms")
	scanFlags.BoolVar(&fv.passiveOnly, "passive-only", false, "Only use passive sources")
	scanFlags.StringVar(&fv.wordlist, "wordlist", "", "Wordlist for brute-force candidates")
	scanFlags.IntVar(&fv.maxSubdomains, "max-subdomains", def.MaxSubdomains, "Cap on candidates per domain")
	scanFlags.StringVar(&fv.userAgent, "user-agent", def.UserAgent, "User-Agent for outbound HTTP")
	scanFlags.BoolVar(&fv.noTLS, "no-tls", false, "Skip the certificate expiry check")
	scanFlags.StringSliceVar(&fv.sources, "sources", def.Sources, "Passive sources: "+strings.Join(subdomain.SourceNames(), ", "))
	scanFlags.StringSliceVar(&fv.resolvers, "resolvers", nil, "DNS servers to query instead of the system resolver")
	scanFlags.BoolVar(&fv.axfr, "axfr", false, "Attempt zone transfers against the domain's name servers")
	scanFlags.BoolVar(&fv.whois, "whois", false, "Attach WHOIS registration data to apex records")
	scanFlags.StringVar(&fv.proxy, "proxy", "", "HTTP proxy URL for outbound HTTP")
	fl.AddFlagSet(scanFlags)

	logFlags := pflag.NewFlagSet("Logging", pflag.ContinueOnError)
	logFlags.StringVar(&fv.logLevel, "log", def.Log.Level, "Log level: debug, info, warn or error")
	logFlags.StringVar(&fv.logFormat, "log-format", def.Log.Format, "Log format: console or json")
	logFlags.StringVar(&fv.logFile, "log-file", "", "Append logs to this file instead of stderr")
	fl.AddFlagSet(logFlags)

	fl.StringVar(&fv.configPath, "config", "", "YAML configuration file")
}

// resolveConfig layers defaults, the config file, the environment and the
// flags the user actually set.
func resolveConfig(fl *pflag.FlagSet, fv flagValues) (config.Config, error) {
	cfg := config.Default()
	if fv.configPath != "" {
		var err error
		if cfg, err = config.Load(fv.configPath); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv(os.Getenv)

	set := func(name string, apply func()) {
		if fl.Changed(name) {
			apply()
		}
	}
	set("domain", func() { cfg.Domain = fv.domain })
	set("domains", func() { cfg.DomainsFile = fv.domains })
	set("output", func() { cfg.Output = fv.output })
	set("format", func() { cfg.Format = fv.format })
	set("concurrency", func() { cfg.Concurrency = fv.concurrency })
	set("timeout", func() { cfg.Timeout = fv.timeout })
	set("passive-only", func() { cfg.PassiveOnly = fv.passiveOnly })
	set("wordlist", func() { cfg.Wordlist = fv.wordlist })
	set("max-subdomains", func() { cfg.MaxSubdomains = fv.maxSubdomains })
	set("user-agent", func() { cfg.UserAgent = fv.userAgent })
	set("no-tls", func() { cfg.CheckTLS = !fv.noTLS })
	set("resolvers", func() { cfg.Resolvers = fv.resolvers })
	set("sources", func() { cfg.Sources = fv.sources })
	set("axfr", func() { cfg.AXFR = fv.axfr })
	set("whois", func() { cfg.Whois = fv.whois })
	set("proxy", func() { cfg.Proxy = fv.proxy })
	set("log", func() { cfg.Log.Level = fv.logLevel })
	set("log-format", func() { cfg.Log.Format = fv.logFormat })
	set("log-file", func() { cfg.Log.File = fv.logFile })

	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config, stderr io.Writer) error {
	log, closer, err := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Path:   cfg.Log.File,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	// Both were checked by Validate.
	format, _ := cfg.OutputFormat()
	proxy, _ := cfg.ProxyURL()

	// A domains file that cannot be read still produces an (empty) output
	// file; the error is reported once it is written.
	var loadErr error
	raw := []string{cfg.Domain}
	if cfg.DomainsFile != "" {
		if raw, loadErr = targets.Load(cfg.DomainsFile); loadErr != nil {
			log.Error().Err(loadErr).Str("path", cfg.DomainsFile).Msg("cannot load domains")
		}
	}
	domains := targets.Resolve(raw, log)
	if len(domains) == 0 {
		log.Warn().Msg("no valid domains to scan")
	}

	var active []subdomain.Source
	if cfg.AXFR {
		active = append(active, &subdomain.ZoneTransfer{Timeout: cfg.Timeout})
	}
	var passive []subdomain.Source
	for _, name := range cfg.Sources {
		src, err := subdomain.NewPassiveSource(name, cfg.CTURL, subdomain.HTTPOptions{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
			Proxy:     proxy,
		})
		if err != nil {
			return err
		}
		passive = append(passive, src)
	}
	enum := subdomain.NewEnumerator(passive, active, subdomain.Settings{
		PassiveOnly:   cfg.PassiveOnly,
		Wordlist:      cfg.Wordlist,
		MaxSubdomains: cfg.MaxSubdomains,
	}, log)

	var lookuper dns.Lookuper = dns.SystemLookuper{}
	if len(cfg.Resolvers) > 0 {
		l, err := dns.NewDNSLookuper(cfg.Resolvers, cfg.Timeout)
		if err != nil {
			return err
		}
		lookuper = l
	}
	resolver := dns.NewResolver(lookuper, cfg.Timeout, log)

	prober := httpprobe.NewProber(httpprobe.Options{
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		CheckTLS:  cfg.CheckTLS,
		Proxy:     proxy,
	}, log)

	opts := pipeline.Options{Concurrency: cfg.Concurrency}
	if cfg.Whois {
		opts.Registrar = whois.NewClient(cfg.Timeout, log)
	}

	log.Info().
		Int("domains", len(domains)).
		Int("concurrency", cfg.Concurrency).
		Bool("passive_only", cfg.PassiveOnly).
		Msg("starting run")

	res := pipeline.New(enum, resolver, prober, opts, log).Run(ctx, domains)

	if err := output.Write(cfg.Output, format, res.Records); err != nil {
		return errors.Wrap(err, "write output")
	}
	log.Info().Str("path", cfg.Output).Int("records", len(res.Records)).Msg("output written")

	printSummary(stderr, cfg.Output, len(res.Records), res.Failed)
	return loadErr
}

func printSummary(w io.Writer, path string, records int, failed []pipeline.DomainFailure) {
	success := color.New(color.FgGreen).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	line := fmt.Sprintf("%s %d records written to %s", success("[+]"), records, path)
	if len(failed) > 0 {
		line += warn(fmt.Sprintf(" (%d domains failed)", len(failed)))
	}
	fmt.Fprintln(w, line)
}
