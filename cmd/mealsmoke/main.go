package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/loykin/mealsmoke"
	"github.com/loykin/mealsmoke/internal/common"
	"github.com/loykin/mealsmoke/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mealsmoke",
		Short:         "Run the meal_max smoke test against a running API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &mealsmoke.UsageError{Arg: args[0]}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, closer, err := loadDoc(cmd, v)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()
			_, err = mealsmoke.Run(cmd.Context(), doc, cmd.OutOrStdout())
			return err
		},
	}
	cmd.SetFlagErrorFunc(flagError)

	// Environment variables support: MEALSMOKE_CONFIG, MEALSMOKE_BASE_URL, ...
	cmd.PersistentFlags().String("config", v.GetString("config"), "path to a config yaml")
	cmd.PersistentFlags().String("base-url", v.GetString("base_url"), "meal_max API base URL")
	cmd.Flags().Bool("echo-json", v.GetBool("echo_json"), "pretty-print every successful JSON response")

	_ = v.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("base_url", cmd.PersistentFlags().Lookup("base-url"))
	_ = v.BindPFlag("echo_json", cmd.Flags().Lookup("echo-json"))

	cmd.AddCommand(newStepsCmd(v))
	cmd.AddCommand(newHistoryCmd(v))
	return cmd
}

// flagError turns pflag parse errors into usage errors naming the argument.
func flagError(_ *cobra.Command, err error) error {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "unknown flag: "):
		return &mealsmoke.UsageError{Arg: strings.TrimPrefix(msg, "unknown flag: ")}
	case strings.HasPrefix(msg, "unknown shorthand flag: "):
		if i := strings.LastIndex(msg, " in "); i >= 0 {
			return &mealsmoke.UsageError{Arg: msg[i+len(" in "):]}
		}
	}
	if errors.Is(err, pflag.ErrHelp) {
		return err
	}
	return &mealsmoke.UsageError{Msg: msg}
}

// loadDoc reads the configuration and installs the configured logger. The
// returned closer is never nil when err is nil.
func loadDoc(cmd *cobra.Command, v *viper.Viper) (*mealsmoke.Config, io.Closer, error) {
	explicit := cmd.Flags().Changed("config") || strings.TrimSpace(os.Getenv(config.EnvPrefix+"_CONFIG")) != ""
	doc, err := config.Load(v, explicit)
	if err != nil {
		return nil, nil, &mealsmoke.UsageError{Msg: err.Error()}
	}
	if err := doc.Validate(); err != nil {
		return nil, nil, &mealsmoke.UsageError{Msg: err.Error()}
	}
	_, closer, err := common.Setup(doc.LogOptions())
	if err != nil {
		return nil, nil, &mealsmoke.UsageError{Msg: err.Error()}
	}
	return doc, closer, nil
}

// execute runs the command line in args. Usage errors are printed to out
// before being returned.
func execute(ctx context.Context, args []string, out io.Writer) error {
	cmd := newRootCmd(config.New())
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(out)
	err := cmd.ExecuteContext(ctx)

	var usage *mealsmoke.UsageError
	if errors.As(err, &usage) {
		_, _ = fmt.Fprintln(out, usage.Error())
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
