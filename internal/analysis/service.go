package analysis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/sasper-insights/internal/models"
)

const (
	// NoTransactionsMessage is returned without calling the model when the
	// user has nothing recorded yet.
	NoTransactionsMessage = "No he encontrado transacciones para analizar. ¡Empieza a registrar tus gastos para recibir tu primer análisis!"

	systemPrompt = "Eres 'Financiero AI', un asesor financiero experto y amigable. " +
		"Analiza las siguientes transacciones de un usuario y proporciónale un resumen claro, " +
		"una observación clave y un consejo práctico. Mantén un tono motivador y cercano."
)

type TransactionSource interface {
	Latest(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
}

// Completer sends one system and one user message to a chat model and
// returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Service struct {
	transactions TransactionSource
	completer    Completer
	limit        int
	logger       zerolog.Logger
}

func NewService(transactions TransactionSource, completer Completer, limit int, logger zerolog.Logger) *Service {
	if limit <= 0 {
		limit = 50
	}
	return &Service{
		transactions: transactions,
		completer:    completer,
		limit:        limit,
		logger:       logger.With().Str("component", "financial_analysis").Logger(),
	}
}

// Analyze asks the model for a summary, one observation and one tip about
// the user's latest transactions.
func (s *Service) Analyze(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("user id is required")
	}

	txs, err := s.transactions.Latest(ctx, userID, s.limit)
	if err != nil {
		return "", errors.Wrap(err, "load transactions")
	}
	if len(txs) == 0 {
		s.logger.Debug().Str("user_id", userID).Msg("no transactions to analyze")
		return NoTransactionsMessage, nil
	}

	prompt, err := userPrompt(txs)
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("user_id", userID).Int("transactions", len(txs)).Msg("requesting financial analysis")
	reply, err := s.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return "", errors.Wrap(err, "complete analysis")
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.New("model returned an empty analysis")
	}
	return reply, nil
}

func userPrompt(txs []models.Transaction) (string, error) {
	data, err := json.MarshalIndent(txs, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode transactions")
	}
	return "Datos de las transacciones:\n```json\n" + string(data) + "\n```", nil
}
