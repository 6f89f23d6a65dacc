package cmd

import (
	"github.com/spf13/cobra"

	"github.com/qualitytrend/sonarscrape/internal/mcp"
	"github.com/qualitytrend/sonarscrape/internal/session"
	"github.com/qualitytrend/sonarscrape/internal/sonar"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the sonarscrape MCP server",
	Long: `Launch an MCP server that lets AI agents connect to a server, browse its
projects and export issues or measures of one project in the background.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		// Progress goes to task status only; stdio carries the protocol.
		fetcher := sonar.NewHTTPFetcher(cfg.Timeout, logger)
		sess := session.New(fetcher, tableStore, cfg.Language, exporterOptions()...)
		defer sess.Close()
		return mcp.StartMCPServer(rootCtx, cfg, sess)
	},
}
