package commands

import (
	"github.com/quorumnet/watchtower/config"
	"github.com/spf13/cobra"
)

var _config = config.NewDefaultConfig()

//RootCmd is the root command for watchtower
var RootCmd = &cobra.Command{
	Use:              "watchtower",
	Short:            "p2p network monitor",
	TraverseChildren: true,
}
