package showports

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mdouchement/ioptrond/ioptron"
	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "show-ports",
		Short: "Show the USB serial ports a mount can be plugged on",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			ports, err := ioptron.ListPorts()
			if err != nil {
				return err
			}

			if len(ports) == 0 {
				fmt.Println("No USB serial port found")
				return nil
			}

			slices.SortStableFunc(ports, func(a, b *enumerator.PortDetails) int {
				return strings.Compare(a.Name, b.Name)
			})

			for _, p := range ports {
				fmt.Printf("%-16s VID:%s PID:%s serial:%q %s\n", p.Name, p.VID, p.PID, p.SerialNumber, p.Product)
			}

			return nil
		},
	}
}
