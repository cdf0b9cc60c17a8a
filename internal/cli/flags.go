package cli

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/roach88/wikichain/internal/ir"
)

// pageOptions holds the flags that describe a page.
type pageOptions struct {
	Content    string
	Permission string
}

// flagSet returns the page flags for adding to a command.
func (p *pageOptions) flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("page", pflag.ContinueOnError)
	fs.StringVarP(&p.Content, "content", "c", "", "page content")
	fs.StringVarP(&p.Permission, "permission", "p", "",
		fmt.Sprintf("who may supersede the page (%s|%s)", ir.PermissionAuthorOnly, ir.PermissionOthers))
	return fs
}

// page builds the page the flags describe.
func (p *pageOptions) page() (ir.WikiPage, error) {
	perm, err := ir.ParsePermission(p.Permission)
	if err != nil {
		return ir.WikiPage{}, NewExitError(ExitCommandError, err.Error())
	}
	return ir.NewWikiPage(p.Content, perm), nil
}
