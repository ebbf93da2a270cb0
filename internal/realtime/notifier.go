// Package realtime notifies connected gallery pages when the photo set
// changes, via Supabase Realtime.
package realtime

import (
	"github.com/supabase-community/supabase-go"
)

type Notifier struct {
	client *supabase.Client
}

// NewNotifier wraps a Supabase client. A nil client yields a notifier whose
// publishes are no-ops, so local MinIO deployments need no Supabase project.
func NewNotifier(client *supabase.Client) *Notifier {
	return &Notifier{client: client}
}

// GalleryUpdated announces that the files table changed. Supabase Realtime
// broadcasts Postgres changes on the files table to subscribed pages, so the
// row mutation itself is the publish; this hook exists for explicit channel
// events if broadcasting is ever moved off database triggers.
func (n *Notifier) GalleryUpdated(action string) error {
	if n.client == nil {
		return nil
	}
	return nil
}
