package main

import (
	"fmt"

	"github.com/desertwitch/fts/internal/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals
var (
	logManager = NewSlogManager()

	// profile carries the settings resolved from configuration, environment
	// and flags, in ascending order of precedence.
	profile config.Profile

	memObserver   *memoryObserver
	cpuProfiler   *CPUProfiler
	allocProfiler *AllocProfiler

	flagConfig  string
	flagProfile string
	flagEnvFile string

	flagLogical     bool
	flagPhysical    bool
	flagFollowRoots bool
	flagXDev        bool
	flagDots        bool
	flagNoStat      bool
	flagWhiteout    bool
	flagSort        string
	flagWorkers     int

	flagLogLevel string
	flagLogFile  string

	flagCPUProfile string
	flagMemProfile string
)

//nolint:gochecknoglobals
var rootCmd = &cobra.Command{
	Use:   "ftswalk",
	Short: "walks, measures and records filesystem hierarchies",
	Long: `ftswalk traverses filesystem hierarchies in the manner of the BSD fts(3)
facility and puts the traversal to work: listing entries, summing up disk
usage and recording content-hashed scan manifests.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		prof, err := resolveProfile(cmd)
		if err != nil {
			return err
		}
		profile = *prof

		if err := setupLogging(profile.LogLevel, profile.LogFile); err != nil {
			return err
		}

		memObserver = newMemoryObserver(cmd.Context())
		cpuProfiler = newCPUProfiler(cmd.Context(), flagCPUProfile)
		allocProfiler = newAllocProfiler(cmd.Context(), flagMemProfile)

		return nil
	},
}

//nolint:gochecknoinits
func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&flagConfig, "config", "", "configuration file to read profiles from")
	pf.StringVar(&flagProfile, "profile", "", "name of the configuration profile to apply")
	pf.StringVar(&flagEnvFile, "env-file", "", "environment file overlaying the profile")

	pf.BoolVarP(&flagLogical, "logical", "L", false, "walk the logical hierarchy, following symbolic links")
	pf.BoolVarP(&flagPhysical, "physical", "P", false, "walk the physical hierarchy, never following symbolic links")
	pf.BoolVarP(&flagFollowRoots, "follow-roots", "H", false, "follow symbolic links given as root paths")
	pf.BoolVar(&flagXDev, "xdev", false, "stay on the device of each root path")
	pf.BoolVar(&flagDots, "dots", false, "return the . and .. entries of read directories")
	pf.BoolVar(&flagNoStat, "nostat", false, "elide stat calls where the walk can do without them")
	pf.BoolVar(&flagWhiteout, "whiteout", false, "return union-mount whiteout markers")
	pf.StringVar(&flagSort, "sort", "", "order sibling entries (name, size)")
	pf.IntVar(&flagWorkers, "workers", 0, "hashing workers, 0 for one per CPU")

	pf.StringVar(&flagLogLevel, "log-level", "", "minimum level of logged messages (debug, info, warn, error)")
	pf.StringVar(&flagLogFile, "log-file", "", "file to additionally log into, with rotation")

	pf.StringVar(&flagCPUProfile, "cpuprofile", "", "write cpu profile to file")
	pf.StringVar(&flagMemProfile, "memprofile", "", "write memory profile to this file")

	rootCmd.MarkFlagsMutuallyExclusive("logical", "physical")
}

// resolveProfile establishes the effective [config.Profile] for a command
// invocation: the named configuration profile (or an empty one) is first
// overlaid with an environment file and then with the explicitly set flags.
func resolveProfile(cmd *cobra.Command) (*config.Profile, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	prof := &config.Profile{}

	name := flagProfile
	if name == "" {
		name = cfg.DefaultProfile
	}

	if name != "" {
		p, err := cfg.GetProfile(name)
		if err != nil {
			return nil, err
		}
		prof = p
	}

	if flagEnvFile != "" {
		if err := config.NewEnvHandler().Apply(prof, flagEnvFile); err != nil {
			return nil, err
		}
	}

	applyFlagOverrides(cmd, prof)

	if err := prof.Validate(); err != nil {
		return nil, fmt.Errorf("(cmd-profile) %w", err)
	}

	return prof, nil
}

// applyFlagOverrides writes the explicitly set flags of the invoked command
// over the profile. Flags left at their defaults do not override.
func applyFlagOverrides(cmd *cobra.Command, prof *config.Profile) {
	flags := cmd.Flags()

	if flagLogical {
		prof.Mode = config.ModeLogical
	}

	if flagPhysical {
		prof.Mode = config.ModePhysical
	}

	if flags.Changed("follow-roots") {
		prof.FollowRoots = flagFollowRoots
	}

	if flags.Changed("xdev") {
		prof.XDev = flagXDev
	}

	if flags.Changed("dots") {
		prof.SeeDot = flagDots
	}

	if flags.Changed("nostat") {
		prof.NoStat = flagNoStat
	}

	if flags.Changed("whiteout") {
		prof.Whiteout = flagWhiteout
	}

	if flags.Changed("sort") {
		prof.Sort = flagSort
	}

	if flags.Changed("workers") {
		prof.Workers = flagWorkers
	}

	if flags.Changed("log-level") {
		prof.LogLevel = flagLogLevel
	}

	if flags.Changed("log-file") {
		prof.LogFile = flagLogFile
	}

	// Subcommand-local flags, present only on some of the commands.
	if flags.Changed("no-hash") {
		prof.NoHash, _ = flags.GetBool("no-hash")
	}

	if flags.Changed("manifest") {
		prof.Manifest, _ = flags.GetString("manifest")
	}
}

// resolveRoots returns the root paths of a command invocation, the profile
// serving as the fallback for an empty argument list.
func resolveRoots(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	if len(profile.Roots) > 0 {
		return profile.Roots, nil
	}

	return nil, fmt.Errorf("(cmd-roots) %w", ErrNoRoots)
}

// stopObservers halts any observers and profilers a command has started.
func stopObservers() {
	if memObserver != nil {
		memObserver.Stop()
	}

	if cpuProfiler != nil {
		cpuProfiler.Stop()
	}

	if allocProfiler != nil {
		allocProfiler.Stop()
	}
}
