package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lborres/agora/core"
)

const (
	conversationColumns = `id, author_id, '' AS conversation_id, title, NULL::text AS content, created_at, updated_at`
	messageColumns      = `id, author_id, conversation_id, NULL::text AS title, content, created_at, updated_at`
)

func table(kind core.ResourceKind) (name, columns string, err error) {
	switch kind {
	case core.KindConversation:
		return "public.conversations", conversationColumns, nil
	case core.KindMessage:
		return "public.messages", messageColumns, nil
	}
	return "", "", core.ErrNotFound
}

func scanResource(kind core.ResourceKind, row pgx.Row) (*core.Resource, error) {
	r := &core.Resource{Kind: kind}
	err := row.Scan(&r.ID, &r.AuthorID, &r.ConversationID, &r.Title, &r.Content, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

// CreateResource inserts a conversation or message.
func (a *Adapter) CreateResource(ctx context.Context, r *core.Resource) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	var (
		createdAt, updatedAt time.Time
		err                  error
	)
	switch r.Kind {
	case core.KindConversation:
		err = a.db.QueryRow(ctx,
			`INSERT INTO public.conversations (id, author_id, title) VALUES ($1, $2, $3) RETURNING created_at, updated_at`,
			r.ID, r.AuthorID, r.Title).Scan(&createdAt, &updatedAt)
	case core.KindMessage:
		err = a.db.QueryRow(ctx,
			`INSERT INTO public.messages (id, author_id, conversation_id, content) VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`,
			r.ID, r.AuthorID, r.ConversationID, r.Content).Scan(&createdAt, &updatedAt)
	default:
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", r.Kind, err)
	}

	r.CreatedAt = createdAt
	r.UpdatedAt = updatedAt
	return nil
}

func (a *Adapter) GetResource(ctx context.Context, kind core.ResourceKind, id string) (*core.Resource, error) {
	name, columns, err := table(kind)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + columns + ` FROM ` + name + ` WHERE id = $1 AND deleted_at IS NULL`
	return scanResource(kind, a.db.QueryRow(ctx, q, id))
}

func (a *Adapter) UpdateResource(ctx context.Context, kind core.ResourceKind, id string, update core.ResourceUpdate) (*core.Resource, error) {
	var q string
	var arg *string
	switch kind {
	case core.KindConversation:
		q = `UPDATE public.conversations SET title = COALESCE($2, title), updated_at = now()
		     WHERE id = $1 AND deleted_at IS NULL RETURNING ` + conversationColumns
		arg = update.Title
	case core.KindMessage:
		q = `UPDATE public.messages SET content = COALESCE($2, content), updated_at = now()
		     WHERE id = $1 AND deleted_at IS NULL RETURNING ` + messageColumns
		arg = update.Content
	default:
		return nil, core.ErrNotFound
	}
	return scanResource(kind, a.db.QueryRow(ctx, q, id, arg))
}

// DeleteResource soft-deletes. A conversation takes its messages with it
// in the same transaction.
func (a *Adapter) DeleteResource(ctx context.Context, kind core.ResourceKind, id string) error {
	name, _, err := table(kind)
	if err != nil {
		return err
	}

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `UPDATE `+name+` SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}

	if kind == core.KindConversation {
		_, err = tx.Exec(ctx, `UPDATE public.messages SET deleted_at = now() WHERE conversation_id = $1 AND deleted_at IS NULL`, id)
		if err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
	}

	return tx.Commit(ctx)
}
