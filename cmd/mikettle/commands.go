package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/mikettle/internal/kettle"
	"github.com/muurk/mikettle/internal/ui"
)

var outputJSON bool

func init() {
	statusCmd.Flags().BoolVar(&outputJSON, "json", false, "Print the status as JSON")
	getCmd.Flags().BoolVar(&outputJSON, "json", false, "Print the value as JSON")

	keepWarmCmd.Flags().StringVar(&keepWarmTypeArg, "type", "", "Keep-warm type: boil (boil and cool down) or warm (warm up)")
	keepWarmCmd.Flags().IntVar(&keepWarmTempArg, "temp", 0, fmt.Sprintf("Keep-warm temperature in °C (%d-%d)",
		kettle.MinKeepWarmTemperature, kettle.MaxKeepWarmTemperature))
	keepWarmTimeCmd.Flags().StringVar(&keepWarmTimeArg, "set", "", "Keep-warm duration in hours (0-12, half-hour steps)")
	extendedWarmUpCmd.Flags().StringVar(&extendedWarmUpArg, "set", "", "Turn extended warm up on or off")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", ui.DefaultWatchInterval, "Polling interval")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(keepWarmCmd)
	rootCmd.AddCommand(keepWarmTimeCmd)
	rootCmd.AddCommand(extendedWarmUpCmd)
	rootCmd.AddCommand(watchCmd)
}

// withClient opens a client for cmd and closes it when fn returns
func withClient(cmd *cobra.Command, fn func(*kettle.Client, target) error) error {
	client, t, err := openClient(cmd.Flags().Changed)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client, t)
}

// printError renders err as an error box and returns it for the exit status
func printError(title string, err error) error {
	var tips []string
	for _, line := range strings.Split(kettle.TroubleshootingHint(err), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "•"))
		if line != "" && line != "Troubleshooting:" {
			tips = append(tips, line)
		}
	}
	ui.NewPrinter(os.Stderr).PrintError(title, err, tips)
	return errSilent{err}
}

// errSilent marks an error already shown to the user
type errSilent struct{ error }

func (e errSilent) Unwrap() error { return e.error }

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the kettle status",
	Long: `Authenticate with the kettle and print its decoded status.

A reading younger than the cache TTL is reused; --fresh always polls.`,
	Example: `  # Status of the default saved kettle
  mikettle status

  # Status of a kettle given on the command line
  mikettle status --mac AA:BB:CC:DD:EE:FF --product-id 275

  # JSON for scripting
  mikettle status --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(client *kettle.Client, t target) error {
		status, err := client.Status(!fresh)
		if err != nil {
			if outputJSON || !ui.IsTerminal() {
				return err
			}
			return printError("Status of "+t.label(), err)
		}
		recordLastSeen(t)

		switch {
		case outputJSON:
			return printJSON(status)
		case ui.IsTerminal():
			p := ui.NewPrinter(nil)
			p.Println(ui.RenderStatus(t.label(), status, client.LastRead(), p.Width()))
		default:
			fmt.Print(ui.RenderStatusPlain(status))
		}
		return nil
	})
}

var getCmd = &cobra.Command{
	Use:   "get <parameter>",
	Short: "Print one status parameter",
	Long: `Print a single status parameter.

Parameters: action, mode, set-temperature, current-temperature,
keep-warm-type, current-keep-warm-time, extended-warm-up, set-keep-warm-time`,
	Example: `  mikettle get current-temperature
  mikettle get action --fresh`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		param, err := kettle.ParseParameter(args[0])
		if err != nil {
			return err
		}
		return withClient(cmd, func(client *kettle.Client, t target) error {
			value, err := client.Parameter(param, !fresh)
			if err != nil {
				return err
			}
			recordLastSeen(t)
			if outputJSON {
				return printJSON(map[string]string{string(param): fmt.Sprint(value)})
			}
			fmt.Println(value)
			return nil
		})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show device information and settings",
	Long:  `Read the kettle's name, manufacturer, firmware version and keep-warm settings.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(client *kettle.Client, t target) error {
			details := make(map[string]string)

			reads := []struct {
				label string
				read  func() (string, error)
			}{
				{"Name", client.Name},
				{"Manufacturer", client.Manufacturer},
				{"Firmware", client.FirmwareVersion},
				{"Keep warm", func() (string, error) {
					kwType, temp, err := client.KeepWarm()
					if err != nil {
						return "", err
					}
					return fmt.Sprintf("%s, %d°C", kwType, temp), nil
				}},
				{"Keep warm time", func() (string, error) {
					halfHours, err := client.KeepWarmTime()
					if err != nil {
						return "", err
					}
					return formatHalfHours(halfHours), nil
				}},
				{"Extended warm up", func() (string, error) {
					ewu, err := client.ExtendedWarmUpSetting()
					if err != nil {
						return "", err
					}
					return ewu.String(), nil
				}},
			}

			for _, r := range reads {
				value, err := r.read()
				if kettle.IsMissingCharacteristic(err) {
					value = "-"
				} else if err != nil {
					return printError("Info for "+t.label(), err)
				}
				details[r.label] = value
			}

			details["Address"] = client.Address()
			details["Product id"] = strconv.Itoa(int(client.Identity().ProductID()))
			ui.NewPrinter(nil).PrintSuccess(t.label(), details)
			return nil
		})
	},
}

var (
	keepWarmTypeArg   string
	keepWarmTempArg   int
	keepWarmTimeArg   string
	extendedWarmUpArg string
	watchInterval     time.Duration
)

// parseKeepWarmType accepts the type by name or by its device value
func parseKeepWarmType(s string) (kettle.KeepWarmType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "boil", "boil-and-cool":
		return kettle.KeepWarmBoilAndCool, nil
	case "1", "warm", "warm-up":
		return kettle.KeepWarmWarmUp, nil
	default:
		return 0, kettle.NewValidationError(fmt.Sprintf("unknown keep warm type %q, want boil or warm", s))
	}
}

// parseHalfHours converts hours ("1.5") to half-hour units
func parseHalfHours(s string) (int, error) {
	hours, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, kettle.NewValidationError(fmt.Sprintf("invalid duration %q: want hours, e.g. 1.5", s))
	}
	halfHours := hours * 2
	if halfHours != float64(int(halfHours)) {
		return 0, kettle.NewValidationError(fmt.Sprintf("duration %q is not a multiple of half an hour", s))
	}
	return int(halfHours), nil
}

func formatHalfHours(halfHours int) string {
	return fmt.Sprintf("%.1f h", float64(halfHours)/2)
}

// parseExtendedWarmUp maps on/off to the flag value the kettle expects
func parseExtendedWarmUp(s string) (kettle.ExtendedWarmUp, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes":
		return kettle.ExtendedWarmUpOn, nil
	case "off", "false", "no":
		return kettle.ExtendedWarmUpOff, nil
	default:
		return 0, kettle.NewValidationError(fmt.Sprintf("invalid value %q, want on or off", s))
	}
}

var keepWarmCmd = &cobra.Command{
	Use:   "keep-warm",
	Short: "Show or set the keep-warm type and temperature",
	Example: `  # Show the current setting
  mikettle keep-warm

  # Boil, then keep warm at 65°C
  mikettle keep-warm --type boil --temp 65`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		setType := cmd.Flags().Changed("type")
		setTemp := cmd.Flags().Changed("temp")

		return withClient(cmd, func(client *kettle.Client, t target) error {
			kwType, temp, err := client.KeepWarm()
			if err != nil {
				return err
			}
			if !setType && !setTemp {
				fmt.Printf("%s, %d°C\n", kwType, temp)
				return nil
			}

			if setType {
				if kwType, err = parseKeepWarmType(keepWarmTypeArg); err != nil {
					return err
				}
			}
			if setTemp {
				temp = keepWarmTempArg
			}
			if err := client.ConfigureKeepWarm(kwType, temp); err != nil {
				return err
			}
			ui.NewPrinter(nil).PrintSuccess("Keep warm updated", map[string]string{
				"Type":        kwType.String(),
				"Temperature": fmt.Sprintf("%d°C", temp),
			})
			return nil
		})
	},
}

var keepWarmTimeCmd = &cobra.Command{
	Use:   "keep-warm-time",
	Short: "Show or set how long the kettle keeps warm",
	Example: `  mikettle keep-warm-time
  mikettle keep-warm-time --set 2.5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(client *kettle.Client, t target) error {
			if !cmd.Flags().Changed("set") {
				halfHours, err := client.KeepWarmTime()
				if err != nil {
					return err
				}
				fmt.Println(formatHalfHours(halfHours))
				return nil
			}

			halfHours, err := parseHalfHours(keepWarmTimeArg)
			if err != nil {
				return err
			}
			if err := client.ConfigureKeepWarmTime(halfHours); err != nil {
				return err
			}
			ui.NewPrinter(nil).PrintSuccess("Keep warm time updated", map[string]string{
				"Duration": formatHalfHours(halfHours),
			})
			return nil
		})
	},
}

var extendedWarmUpCmd = &cobra.Command{
	Use:   "extended-warm-up",
	Short: "Show or set the extended warm up flag",
	Example: `  mikettle extended-warm-up
  mikettle extended-warm-up --set off`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(client *kettle.Client, t target) error {
			if !cmd.Flags().Changed("set") {
				ewu, err := client.ExtendedWarmUpSetting()
				if err != nil {
					return err
				}
				fmt.Println(ewu)
				return nil
			}

			ewu, err := parseExtendedWarmUp(extendedWarmUpArg)
			if err != nil {
				return err
			}
			if err := client.ConfigureExtendedWarmUp(ewu); err != nil {
				return err
			}
			ui.NewPrinter(nil).PrintSuccess("Extended warm up updated", map[string]string{
				"Extended warm up": ewu.String(),
			})
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show a live status screen",
	Long: `Poll the kettle on an interval and redraw its status.

Readings within the cache TTL are reused, so the kettle is polled at most
once per TTL unless you press r.`,
	Example: `  mikettle watch
  mikettle watch --interval 10s --cache-ttl 10s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(client *kettle.Client, t target) error {
			fetch := func(fresh bool) (kettle.Status, error) {
				status, err := client.Status(!fresh)
				if err == nil {
					recordLastSeen(t)
				}
				return status, err
			}
			return ui.RunWatch(t.label(), fetch, watchInterval)
		})
	},
}
