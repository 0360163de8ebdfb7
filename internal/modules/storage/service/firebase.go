package service

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"smc_bot/internal/models"
)

type FirebaseConfig struct {
	DatabaseURL     string
	CredentialsFile string
	// Path is the node holding one child per signal, keyed by push id.
	Path string
}

// Firebase stores signals in the Realtime Database, one child per signal
// under Path. Viewers subscribed to that node see tracker updates live.
type Firebase struct {
	root *db.Ref
}

var _ Store = (*Firebase)(nil)

func NewFirebase(ctx context.Context, cfg FirebaseConfig) (*Firebase, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: cfg.DatabaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase database: %w", err)
	}
	path := cfg.Path
	if path == "" {
		path = "signals"
	}
	return &Firebase{root: client.NewRef(path)}, nil
}

func (f *Firebase) Create(ctx context.Context, s models.Signal) (string, error) {
	s.ID = ""
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Reasoning == nil {
		s.Reasoning = []string{}
	}
	ref, err := f.root.Push(ctx, s)
	if err != nil {
		return "", fmt.Errorf("push signal: %w", err)
	}
	return ref.Key, nil
}

func (f *Firebase) Get(ctx context.Context, id string) (models.Signal, error) {
	var s *models.Signal
	if err := f.root.Child(id).Get(ctx, &s); err != nil {
		return models.Signal{}, fmt.Errorf("get signal %s: %w", id, err)
	}
	if s == nil {
		return models.Signal{}, models.ErrSignalNotFound
	}
	s.ID = id
	return *s, nil
}

// Update sends only the changed children, so concurrent writers of other
// fields are not clobbered.
func (f *Firebase) Update(ctx context.Context, id string, patch models.SignalPatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	if _, err := f.Get(ctx, id); err != nil {
		return err
	}
	upd := make(map[string]interface{}, len(fields))
	for _, fl := range fields {
		upd[fl.JSON] = fl.Value
	}
	if err := f.root.Child(id).Update(ctx, upd); err != nil {
		return fmt.Errorf("update signal %s: %w", id, err)
	}
	return nil
}

func (f *Firebase) Delete(ctx context.Context, id string) error {
	if _, err := f.Get(ctx, id); err != nil {
		return err
	}
	if err := f.root.Child(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete signal %s: %w", id, err)
	}
	return nil
}

func (f *Firebase) List(ctx context.Context, userID string, limit int) ([]models.Signal, error) {
	out, err := f.byUser(ctx, userID, func(models.Signal) bool { return true })
	if err != nil {
		return nil, err
	}
	return limitList(out, limit), nil
}

func (f *Firebase) Tracked(ctx context.Context, userID string) ([]models.Signal, error) {
	return f.byUser(ctx, userID, func(s models.Signal) bool { return s.Tracked })
}

func (f *Firebase) OpenTracked(ctx context.Context, userID string) ([]models.Signal, error) {
	return f.byUser(ctx, userID, models.Signal.Active)
}

func (f *Firebase) byUser(ctx context.Context, userID string, keep func(models.Signal) bool) ([]models.Signal, error) {
	var nodes map[string]models.Signal
	if err := f.root.OrderByChild("userId").EqualTo(userID).Get(ctx, &nodes); err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	out := make([]models.Signal, 0, len(nodes))
	for key, s := range nodes {
		s.ID = key
		if keep(s) {
			out = append(out, s)
		}
	}
	newestFirst(out)
	return out, nil
}
