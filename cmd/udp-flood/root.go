package main

import (
	"context"
	"fmt"

	"github.com/joeycumines/go-udpflood/flood"
	"github.com/spf13/cobra"
)

const helpNotes = `Notes:
  * Destination address could have '*' symbols, in this case a random number will be used in this position
  * Destination address could be IPv4 (with dots) or IPv6 (with colons)
  * --port-min and --port-max could be used to randomize the destination port
  * --size-min and --size-max could be used to randomize the datagram size
  * Application sends random data, do not use a port if someone is listening to it
  * --workers can be 0, in this case one worker will be created for each CPU
  * A worker stops on the first error
  * Flags override values from --config, a TOML file using the long flag names, with underscores

Defaults:
    --address    %s
    --port       %d
    --size       %d
    --timeout    %d
    --workers    %d

Limits:
    --port       %d <= port <= %d
    --size       %d <= size <= %d
    --timeout    %d <= timeout <= %d
    --workers    %d <= workers <= %d`

type runFunc func(ctx context.Context, s *settings, cmd *cobra.Command) error

func newRootCommand(run runFunc) *cobra.Command {
	s := defaultSettings()

	cmd := &cobra.Command{
		Use:   `udp-flood`,
		Short: `UDP traffic generator`,
		Long: `udp-flood sends UDP datagrams of random content, to a (possibly random)
destination, as fast as possible or at a fixed pace, from one or more workers.

` + fmt.Sprintf(helpNotes,
			flood.DefaultAddress,
			flood.DefaultPort,
			flood.DefaultSize,
			flood.DefaultTimeout.Milliseconds(),
			flood.DefaultWorkers,
			flood.MinPort, flood.MaxPort,
			flood.MinSize, flood.MaxSize,
			flood.MinTimeout.Milliseconds(), flood.MaxTimeout.Milliseconds(),
			flood.MinWorkers, flood.MaxWorkers,
		),
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.configFile != `` {
				if err := s.loadFile(s.configFile, cmd.Flags()); err != nil {
					return err
				}
			}
			return run(cmd.Context(), s, cmd)
		},
	}
	cmd.SetVersionTemplate(`Version {{.Version}}, (c) 2021` + "\n")

	flags := cmd.Flags()
	flags.SortFlags = false

	flags.StringVarP(&s.Address, `address`, `a`, s.Address, `Destination address, '*' is replaced by a random number`)
	flags.VarP(newRangeValue(&s.PortMin, &s.PortMax), `port`, `p`, `Destination port`)
	flags.IntVar(&s.PortMin, `port-min`, s.PortMin, `Minimal destination port`)
	flags.IntVar(&s.PortMax, `port-max`, s.PortMax, `Maximal destination port`)
	flags.VarP(newRangeValue(&s.SizeMin, &s.SizeMax), `size`, `s`, `Datagram size, in bytes`)
	flags.IntVar(&s.SizeMin, `size-min`, s.SizeMin, `Minimal datagram size, in bytes`)
	flags.IntVar(&s.SizeMax, `size-max`, s.SizeMax, `Maximal datagram size, in bytes`)
	flags.IntVarP(&s.Timeout, `timeout`, `t`, s.Timeout, `Pause between sends, per worker, in milliseconds`)
	flags.IntVarP(&s.Workers, `workers`, `w`, s.Workers, `Number of workers, 0 for one per CPU`)
	flags.BoolVarP(&s.verbose, `verbose`, `v`, false, `Log every datagram (trace level)`)
	flags.BoolVarP(&s.quiet, `quiet`, `q`, false, `Log errors only`)
	flags.BoolVar(&s.RawStats, `raw-stats`, s.RawStats, `Report statistics without unit conversion`)
	flags.StringVar(&s.configFile, `config`, ``, `TOML config file`)
	flags.Var(&s.Log.Level, `log-level`, `Log level (emerg, alert, crit, err, warning, notice, info, debug, trace, disabled)`)
	flags.StringVar(&s.Log.Format, `log-format`, s.Log.Format, `Log format (json, console)`)
	flags.StringVar(&s.Log.File, `log-file`, s.Log.File, `Log to a rotated file, instead of stderr`)
	flags.IntVar(&s.Log.MaxSize, `log-max-size`, s.Log.MaxSize, `Log file size before rotation, in megabytes`)
	flags.IntVar(&s.Log.MaxAge, `log-max-age`, s.Log.MaxAge, `Days to keep rotated log files`)
	flags.IntVar(&s.Log.MaxBackups, `log-max-backups`, s.Log.MaxBackups, `Number of rotated log files to keep`)
	flags.IntVar(&s.SendBuffer, `send-buffer`, s.SendBuffer, `Socket send buffer size, in bytes, 0 for the system default`)
	flags.BoolVar(&s.CPUAffinity, `cpu-affinity`, s.CPUAffinity, `Pin each threaded worker to a CPU (linux only)`)

	cmd.MarkFlagsMutuallyExclusive(`verbose`, `quiet`)

	return cmd
}
