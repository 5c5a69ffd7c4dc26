package main

import (
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/YoshimuraKazumasa/chainer/internal/backend/managed"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

func NewDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"ls"},
		Short:   "List devices",
		Args:    cobra.NoArgs,
		RunE:    devicesHandler,
	}

	return cmd
}

type memoryReporter interface {
	MemoryStats() managed.MemoryStats
}

func devicesHandler(cmd *cobra.Command, args []string) error {
	var data [][]string
	for _, name := range tensor.BackendNames() {
		b, err := tensor.GetBackend(name)
		if err != nil {
			return err
		}
		for i := 0; i < b.DeviceCount(); i++ {
			d, err := b.Device(i)
			if err != nil {
				return err
			}
			row := []string{d.ID().String(), "host", "-", "-", "-"}
			if m, ok := d.(memoryReporter); ok {
				stats := m.MemoryStats()
				row = []string{
					d.ID().String(),
					"managed",
					humanize.IBytes(stats.InUse),
					humanize.IBytes(stats.Peak),
					humanize.Comma(int64(stats.Buffers)),
				}
			}
			data = append(data, row)
		}
	}

	if len(data) == 0 {
		return errors.New("no devices available")
	}
	renderTable(cmd.OutOrStdout(), []string{"DEVICE", "MEMORY", "IN USE", "PEAK", "BUFFERS"}, data)
	return nil
}
