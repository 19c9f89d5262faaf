package mcpserver

import (
	"context"

	"github.com/ShayCichocki/gads/internal/pipeline"
)

type approvalKey struct{}

// withApproval records the caller's answer to any approval gate reached
// while serving the request.
func withApproval(ctx context.Context, approved bool) context.Context {
	return context.WithValue(ctx, approvalKey{}, approved)
}

// Approver answers approval gates from the approve argument of the tool
// call that triggered them. Calls without it are denied.
func Approver() pipeline.ApprovalFunc {
	return func(ctx context.Context, _ pipeline.ApprovalRequest) bool {
		approved, _ := ctx.Value(approvalKey{}).(bool)
		return approved
	}
}
