// Package convert turns editor states into stored FEN conversions.
package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/boardfen/internal/domain"
	"github.com/park285/boardfen/internal/editor"
	"github.com/park285/boardfen/internal/fen"
	"go.uber.org/zap"
)

var ErrConversionNotFound = errors.New("conversion not found")

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	defaultCacheTTL     = time.Hour
)

type Config struct {
	// StrictBoard rejects boards that do not have 64 squares.
	StrictBoard     bool
	VerifyPlacement bool
	CacheTTL        time.Duration
	HistoryLimit    int
}

type Request struct {
	State  fen.BoardState
	Source string
}

type Health struct {
	CacheOK bool
	History string
}

type Service struct {
	encoder  *fen.Encoder
	verifier *Verifier
	cache    Cache
	repo     Repository
	renderer BoardRenderer
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires the encoder with its stores. cache may be nil.
func NewService(table *fen.PieceTable, cache Cache, repo Repository, renderer BoardRenderer, cfg Config, logger *zap.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("conversion repository is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("board renderer is required")
	}
	if table == nil {
		table = fen.DefaultPieceTable()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.HistoryLimit <= 0 || cfg.HistoryLimit > maxHistoryLimit {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []fen.Option
	if cfg.StrictBoard {
		opts = append(opts, fen.WithBoardSizeCheck())
	}
	return &Service{
		encoder:  fen.NewEncoder(table, opts...),
		verifier: NewVerifier(table),
		cache:    cache,
		repo:     repo,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (s *Service) Encoder() *fen.Encoder { return s.encoder }

// Convert encodes req.State. Rejected states are neither cached nor recorded.
// A cache hit returns the earlier conversion with Cached set and the caller's Source,
// and adds no history row.
func (s *Service) Convert(ctx context.Context, req Request) (*domain.Conversion, error) {
	pos, err := s.encoder.Encode(req.State)
	if err != nil {
		s.logger.Debug("fen_rejected",
			zap.String("source", req.Source),
			zap.Int("squares", len(req.State.Squares)),
			zap.Error(err),
		)
		return nil, err
	}

	digest := Digest(req.State)
	if cached := s.cached(ctx, digest); cached != nil {
		cached.Source = strings.TrimSpace(req.Source)
		return cached, nil
	}

	if s.cfg.VerifyPlacement && len(req.State.Squares) == fen.BoardSquares {
		letters, err := s.encoder.MapSquares(req.State.Squares)
		if err != nil {
			return nil, err
		}
		if _, err := s.verifier.Verify(letters, pos.Squares); err != nil {
			s.logger.Error("fen_verify_failed", zap.String("digest", digest), zap.Error(err))
			return nil, err
		}
	}

	conv := &domain.Conversion{
		ID:             uuid.NewString(),
		Digest:         digest,
		FEN:            pos.String(),
		Placement:      pos.Squares,
		SideToMove:     pos.SideToMove,
		CastlingRights: pos.CastlingRights,
		Squares:        glyphStrings(req.State.Squares),
		Source:         strings.TrimSpace(req.Source),
		CreatedAt:      s.now().UTC(),
	}

	recorded := true
	if err := s.repo.InsertConversion(ctx, conv); err != nil {
		recorded = false
		s.logger.Warn("failed to record conversion",
			zap.Error(err),
			zap.String("conversion_id", conv.ID),
			zap.String("backend", s.repo.Backend()),
		)
	}
	// only cache ids that Conversion can resolve
	if s.cache != nil && recorded {
		if err := s.cache.Set(ctx, conv, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache conversion", zap.Error(err), zap.String("digest", digest))
		}
	}

	s.logger.Info("fen_convert",
		zap.String("conversion_id", conv.ID),
		zap.String("fen", conv.FEN),
		zap.String("source", conv.Source),
	)
	return conv, nil
}

func (s *Service) cached(ctx context.Context, digest string) *domain.Conversion {
	if s.cache == nil {
		return nil
	}
	conv, err := s.cache.Get(ctx, digest)
	if err != nil {
		s.logger.Warn("conversion cache lookup failed", zap.Error(err), zap.String("digest", digest))
		return nil
	}
	if conv == nil {
		return nil
	}
	conv.Cached = true
	s.logger.Debug("fen_cache_hit", zap.String("conversion_id", conv.ID), zap.String("digest", digest))
	return conv
}

// ConvertJSON decodes a raw editor record and converts it.
func (s *Service) ConvertJSON(ctx context.Context, raw []byte, source string) (*domain.Conversion, error) {
	state, err := editor.DecodeBoard(raw)
	if err != nil {
		return nil, err
	}
	return s.Convert(ctx, Request{State: state, Source: source})
}

// History lists recent conversions, newest first. limit <= 0 uses the configured default.
func (s *Service) History(ctx context.Context, limit int) ([]*domain.Conversion, error) {
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	items, err := s.repo.GetRecentConversions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load conversion history: %w", err)
	}
	return items, nil
}

func (s *Service) Conversion(ctx context.Context, id string) (*domain.Conversion, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrConversionNotFound
	}
	conv, err := s.repo.GetConversion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load conversion: %w", err)
	}
	if conv == nil {
		return nil, ErrConversionNotFound
	}
	return conv, nil
}

// Preview renders the encoded position as PNG. It always needs a full board.
func (s *Service) Preview(ctx context.Context, req Request) ([]byte, error) {
	if len(req.State.Squares) != fen.BoardSquares {
		return nil, &fen.BoardSizeError{Got: len(req.State.Squares)}
	}
	pos, err := s.encoder.Encode(req.State)
	if err != nil {
		return nil, err
	}
	letters, err := s.encoder.MapSquares(req.State.Squares)
	if err != nil {
		return nil, err
	}
	board, err := s.verifier.Board(letters)
	if err != nil {
		return nil, err
	}
	turn := "White to move"
	if !req.State.WhiteToStart {
		turn = "Black to move"
	}
	return s.renderer.RenderPNG(ctx, board, RenderOptions{Caption: pos.String(), Turn: turn})
}

func (s *Service) PreviewJSON(ctx context.Context, raw []byte) ([]byte, error) {
	state, err := editor.DecodeBoard(raw)
	if err != nil {
		return nil, err
	}
	return s.Preview(ctx, Request{State: state})
}

func (s *Service) Health(ctx context.Context) Health {
	h := Health{History: s.repo.Backend()}
	if s.cache != nil {
		h.CacheOK = s.cache.Ping(ctx) == nil
	}
	return h
}

// Digest identifies an editor state for caching.
func Digest(state fen.BoardState) string {
	h := sha256.New()
	flags := []bool{state.WhiteToStart, state.WhiteKingSide, state.WhiteQueenSide, state.BlackKingSide, state.BlackQueenSide}
	for _, f := range flags {
		if f {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}
	h.Write([]byte(string(state.Squares)))
	return hex.EncodeToString(h.Sum(nil))
}

func glyphStrings(squares []rune) []string {
	out := make([]string, len(squares))
	for i, r := range squares {
		out[i] = string(r)
	}
	return out
}
