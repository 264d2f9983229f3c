package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `tasklane organizes work as Organization → Spaces → Projects → Lists → Tasks.

Every list is an ordered collection. Each task carries a fractional position; lower sorts first.

Default workflow:
1) Orient: call get_hierarchy with your org_id to find list ids.
2) Read: call list_tasks for a list.
3) Write: create_task appends to the end of a list; move_task places a task at a position.
   - A free position is kept exactly.
   - A taken position ranks the task right after the current holder.
   - Pass expected_version from list_tasks to fail instead of overwriting a concurrent move.
4) On CONCURRENT_MODIFICATION, reload with list_tasks and retry.

Docs:
- tasklane://docs/positioning (how positions are assigned)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "tasklane://docs/positioning",
		Name:        "docs_positioning",
		Title:       "tasklane positioning rules",
		Description: "How task positions are chosen on create and move, and when siblings are renumbered.",
		Content: `# Task positions

Positions are fixed-point decimals with six fractional digits. Values outside ±10^12 are rejected.

## Create

A new task is appended at the highest position in the list plus the gap (1000 by default).

## Move

- If no sibling holds the desired position, the task takes it unchanged.
- If a sibling holds it, the task lands halfway between that sibling and the next one,
  or one gap past it when it is last.
- When the two neighbours are closer than two millionths, the smallest run of siblings
  around them is respread once so the task fits. Tasks outside that run keep their positions.
- Moving a task onto its current list and position changes nothing.

## Ordering

Ties never persist; when reading, equal positions sort by task id.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
