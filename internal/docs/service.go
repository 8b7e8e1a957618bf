package docs

import (
	"context"
	"fmt"

	gdocs "google.golang.org/api/docs/v1"
	"google.golang.org/api/option"
)

// DocumentService is the subset of the document API the appender uses.
type DocumentService interface {
	// EndIndex returns the end offset of the last structural element in the
	// document body.
	EndIndex(ctx context.Context, docID string) (int64, error)

	// InsertText inserts text at index in a single batch update.
	InsertText(ctx context.Context, docID string, index int64, text string) error
}

// ServiceFactory creates a DocumentService on first use.
type ServiceFactory func(ctx context.Context) (DocumentService, error)

// GoogleService implements DocumentService over the Google Docs v1 API.
type GoogleService struct {
	svc *gdocs.Service
}

// NewGoogleService creates a Docs API client from client options.
func NewGoogleService(ctx context.Context, opts ...option.ClientOption) (*GoogleService, error) {
	svc, err := gdocs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docs service; %w", err)
	}
	return &GoogleService{svc: svc}, nil
}

// ServiceAccountFactory returns a factory that authenticates with a
// service-account key file scoped to document editing.
func ServiceAccountFactory(keyFile string, extra ...option.ClientOption) ServiceFactory {
	return func(ctx context.Context) (DocumentService, error) {
		opts := append([]option.ClientOption{
			option.WithCredentialsFile(keyFile),
			option.WithScopes(gdocs.DocumentsScope),
		}, extra...)
		return NewGoogleService(ctx, opts...)
	}
}

// EndIndex fetches the document and returns its body end offset.
func (g *GoogleService) EndIndex(ctx context.Context, docID string) (int64, error) {
	doc, err := g.svc.Documents.Get(docID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to get document %s; %w", docID, err)
	}

	if doc.Body == nil || len(doc.Body.Content) == 0 {
		return 0, fmt.Errorf("document %s has no body content", docID)
	}

	return doc.Body.Content[len(doc.Body.Content)-1].EndIndex, nil
}

// InsertText issues one batchUpdate carrying a single insertText request.
func (g *GoogleService) InsertText(ctx context.Context, docID string, index int64, text string) error {
	req := &gdocs.BatchUpdateDocumentRequest{
		Requests: []*gdocs.Request{
			{
				InsertText: &gdocs.InsertTextRequest{
					Location: &gdocs.Location{Index: index},
					Text:     text,
				},
			},
		},
	}

	if _, err := g.svc.Documents.BatchUpdate(docID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update document %s; %w", docID, err)
	}
	return nil
}
