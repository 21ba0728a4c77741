package tree

import (
	"context"
	"errors"

	"github.com/ValentinKolb/mtree/cmd/util"
	"github.com/ValentinKolb/mtree/lib/common"
	"github.com/ValentinKolb/mtree/lib/registry"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
)

var log = logger.GetLogger("cli")

// Commands are the tree operations, added to the root command one by one
var Commands = []*cobra.Command{
	createCmd,
	putCmd,
	getCmd,
	delCmd,
	listCmd,
	linkCmd,
	unlinkCmd,
	infoCmd,
	statsCmd,
}

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	createCmd.Flags().StringArray("parent", nil, util.WrapString("Parent tree as KEY[@VERSION][:PATH] (repeatable, order defines precedence)"))
	getCmd.Flags().Uint64("version", 0, util.WrapString("Read from this version of the tree instead of the latest"))
	listCmd.Flags().Uint64("version", 0, util.WrapString("List this version of the tree instead of the latest"))
}

// withRegistry opens the configured registry, runs fn and closes the registry again
// (also when fn fails, so the memory backend always writes its snapshots).
func withRegistry(fn func(ctx context.Context, cmd *cobra.Command, args []string, reg *registry.Registry) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		// Bind command flags to viper
		if err := util.BindCommandFlags(cmd); err != nil {
			return err
		}

		config := util.GetConfig()
		if err := common.InitLoggers(config.LogLevel); err != nil {
			return err
		}
		log.Debugf("configuration:%s", config.String())

		reg, err := config.OpenRegistry()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		err = fn(ctx, cmd, args, reg)
		return errors.Join(err, reg.Close())
	}
}
