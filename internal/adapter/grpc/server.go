package grpc

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/history"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/ledger"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/networth"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/performance"
)

// Server implements the ValuationService gRPC server
type Server struct {
	LedgerService      *ledger.LedgerService
	NetWorthService    *networth.NetWorthService
	PerformanceService *performance.PerformanceService
	HistoryService     *history.HistoryService
	logger             zerolog.Logger
}

// NewServer creates a new gRPC server instance
func NewServer(
	ledgerService *ledger.LedgerService,
	netWorthService *networth.NetWorthService,
	performanceService *performance.PerformanceService,
	historyService *history.HistoryService,
	logger zerolog.Logger,
) *Server {
	return &Server{
		LedgerService:      ledgerService,
		NetWorthService:    netWorthService,
		PerformanceService: performanceService,
		HistoryService:     historyService,
		logger:             logger.With().Str("component", "grpc").Logger(),
	}
}

// GetNetWorth handles the GetNetWorth RPC
func (s *Server) GetNetWorth(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requiredString(req, "user_id")
	if err != nil {
		return nil, err
	}

	result, err := s.NetWorthService.CalculateNetWorth(ctx, userID, networth.Options{
		DisplayCurrency: optionalString(req, "display_currency"),
	})
	if err != nil {
		return nil, s.mapError("GetNetWorth", err)
	}

	breakdown := make([]any, 0, len(result.Breakdown))
	for _, group := range result.Breakdown {
		breakdown = append(breakdown, encodeTypeBreakdown(group))
	}
	var debt any
	if result.DebtBreakdown != nil {
		debt = encodeTypeBreakdown(*result.DebtBreakdown)
	}

	return toStruct(map[string]any{
		"net_worth":        result.NetWorth.String(),
		"total_assets":     result.TotalAssets.String(),
		"total_debt":       result.TotalDebt.String(),
		"breakdown":        breakdown,
		"debt_breakdown":   debt,
		"stale_holdings":   encodeStale(result.StaleHoldings),
		"has_stale_data":   result.HasStaleData,
		"rates_used":       encodeRates(result.RatesUsed),
		"display_currency": result.DisplayCurrency,
		"calculated_at":    encodeTime(result.CalculatedAt),
	})
}

// GetAssetBreakdown handles the GetAssetBreakdown RPC
func (s *Server) GetAssetBreakdown(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requiredString(req, "user_id")
	if err != nil {
		return nil, err
	}

	result, err := s.NetWorthService.CalculateAssetBreakdown(ctx, userID, networth.Options{
		DisplayCurrency: optionalString(req, "display_currency"),
	})
	if err != nil {
		return nil, s.mapError("GetAssetBreakdown", err)
	}

	assets := make([]any, 0, len(result.Assets))
	for _, category := range result.Assets {
		assets = append(assets, encodeCategory(category))
	}
	var debt any
	if result.Debt != nil {
		debt = encodeCategory(*result.Debt)
	}

	return toStruct(map[string]any{
		"assets":           assets,
		"debt":             debt,
		"total_assets":     result.TotalAssets.String(),
		"total_debt":       result.TotalDebt.String(),
		"stale_holdings":   encodeStale(result.StaleHoldings),
		"rates_used":       encodeRates(result.RatesUsed),
		"display_currency": result.DisplayCurrency,
		"calculated_at":    encodeTime(result.CalculatedAt),
	})
}

// GetTopPerformers handles the GetTopPerformers RPC
func (s *Server) GetTopPerformers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requiredString(req, "user_id")
	if err != nil {
		return nil, err
	}
	limit, err := optionalInt(req, "limit")
	if err != nil {
		return nil, err
	}

	result, err := s.PerformanceService.GetTopPerformers(ctx, userID, performance.Options{
		Limit:           limit,
		DisplayCurrency: optionalString(req, "display_currency"),
	})
	if err != nil {
		return nil, s.mapError("GetTopPerformers", err)
	}

	return toStruct(map[string]any{
		"gainers":          encodePerformers(result.Gainers),
		"losers":           encodePerformers(result.Losers),
		"display_currency": result.DisplayCurrency,
		"calculated_at":    encodeTime(result.CalculatedAt),
	})
}

// GetHistoricalNetWorth handles the GetHistoricalNetWorth RPC
func (s *Server) GetHistoricalNetWorth(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requiredString(req, "user_id")
	if err != nil {
		return nil, err
	}
	months, err := optionalInt(req, "months")
	if err != nil {
		return nil, err
	}

	result, err := s.HistoryService.CalculateHistoricalNetWorth(ctx, userID, history.Options{
		Months:          months,
		DisplayCurrency: optionalString(req, "display_currency"),
	})
	if err != nil {
		return nil, s.mapError("GetHistoricalNetWorth", err)
	}

	points := make([]any, 0, len(result.History))
	for _, point := range result.History {
		points = append(points, map[string]any{
			"date":         encodeTime(point.Date),
			"net_worth":    point.NetWorth.String(),
			"total_assets": point.TotalAssets.String(),
			"total_debt":   point.TotalDebt.String(),
		})
	}

	return toStruct(map[string]any{
		"history":          points,
		"display_currency": result.DisplayCurrency,
		"generated_at":     encodeTime(result.GeneratedAt),
	})
}

// GetQuantityHeld handles the GetQuantityHeld RPC
func (s *Server) GetQuantityHeld(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	holdingID, err := requiredUUID(req, "holding_id")
	if err != nil {
		return nil, err
	}

	quantity, err := s.LedgerService.CalculateQuantityHeld(ctx, holdingID)
	if err != nil {
		return nil, s.mapError("GetQuantityHeld", err)
	}

	return toStruct(map[string]any{
		"holding_id": holdingID.String(),
		"quantity":   quantity.String(),
	})
}

// GetCostBasis handles the GetCostBasis RPC
func (s *Server) GetCostBasis(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	holdingID, err := requiredUUID(req, "holding_id")
	if err != nil {
		return nil, err
	}

	result, err := s.LedgerService.CalculateCostBasis(ctx, holdingID)
	if err != nil {
		return nil, s.mapError("GetCostBasis", err)
	}

	lots := make([]any, 0, len(result.Lots))
	for _, lot := range result.Lots {
		lots = append(lots, map[string]any{
			"date":               encodeTime(lot.Date),
			"quantity":           lot.Quantity.String(),
			"unit_price":         lot.UnitPrice.String(),
			"remaining_quantity": lot.RemainingQuantity.String(),
			"cost_basis":         lot.CostBasis().String(),
		})
	}

	return toStruct(map[string]any{
		"holding_id":              holdingID.String(),
		"cost_basis":              result.CostBasis.String(),
		"quantity":                result.Quantity.String(),
		"lots":                    lots,
		"unmatched_sell_quantity": result.UnmatchedSellQuantity.String(),
	})
}

func encodeHoldingValue(hv domain.HoldingValue) map[string]any {
	m := map[string]any{
		"holding_id":      hv.HoldingID.String(),
		"name":            hv.Name,
		"symbol":          hv.Symbol,
		"type":            string(hv.Type),
		"native_currency": hv.NativeCurrency,
		"native_value":    hv.NativeValue.String(),
		"display_value":   hv.DisplayValue.String(),
	}
	if hv.Quantity != nil {
		m["quantity"] = hv.Quantity.String()
	}
	if hv.Price != nil {
		m["price"] = hv.Price.String()
	}
	return m
}

func encodeTypeBreakdown(group networth.TypeBreakdown) map[string]any {
	holdings := make([]any, 0, len(group.Holdings))
	for _, hv := range group.Holdings {
		holdings = append(holdings, encodeHoldingValue(hv))
	}
	return map[string]any{
		"type":        string(group.Type),
		"total_value": group.TotalValue.String(),
		"count":       group.Count,
		"holdings":    holdings,
	}
}

func encodeCategory(category networth.AssetCategory) map[string]any {
	holdings := make([]any, 0, len(category.Holdings))
	for _, share := range category.Holdings {
		m := encodeHoldingValue(share.HoldingValue)
		m["percentage"] = share.Percentage.String()
		holdings = append(holdings, m)
	}
	return map[string]any{
		"type":       string(category.Type),
		"value":      category.Value.String(),
		"percentage": category.Percentage.String(),
		"count":      category.Count,
		"holdings":   holdings,
	}
}

func encodeStale(stale []domain.StaleHolding) []any {
	out := make([]any, 0, len(stale))
	for _, sh := range stale {
		m := map[string]any{
			"holding_id": sh.HoldingID.String(),
			"name":       sh.Name,
			"type":       string(sh.Type),
			"reason":     string(sh.Reason),
		}
		if sh.AsOf != nil {
			m["as_of"] = encodeTime(*sh.AsOf)
		}
		out = append(out, m)
	}
	return out
}

func encodePerformers(performers []performance.Performer) []any {
	out := make([]any, 0, len(performers))
	for _, p := range performers {
		out = append(out, map[string]any{
			"holding_id":        p.HoldingID.String(),
			"name":              p.Name,
			"symbol":            p.Symbol,
			"type":              string(p.Type),
			"quantity":          p.Quantity.String(),
			"current_value":     p.CurrentValue.String(),
			"cost_basis":        p.CostBasis.String(),
			"gain_loss":         p.GainLoss.String(),
			"gain_loss_percent": p.GainLossPercent.StringFixed(2),
		})
	}
	return out
}

func encodeRates(rates domain.RateTable) map[string]any {
	out := make(map[string]any, len(rates))
	for pair, rate := range rates {
		out[pair] = rate.String()
	}
	return out
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func optionalString(req *structpb.Struct, field string) string {
	return req.GetFields()[field].GetStringValue()
}

func requiredString(req *structpb.Struct, field string) (string, error) {
	value := optionalString(req, field)
	if value == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	return value, nil
}

func requiredUUID(req *structpb.Struct, field string) (uuid.UUID, error) {
	value, err := requiredString(req, field)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", field, err)
	}
	return id, nil
}

// optionalInt reads a whole number field, returning 0 when it is absent
func optionalInt(req *structpb.Struct, field string) (int, error) {
	value, ok := req.GetFields()[field]
	if !ok {
		return 0, nil
	}
	n, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a whole number", field)
	}
	return int(n.NumberValue), nil
}

// mapError converts domain errors to gRPC status errors
func (s *Server) mapError(method string, err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Internal
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrUnsupportedCurrency),
		errors.Is(err, domain.ErrInvalidTransaction):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrHoldingNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrMissingRate):
		code = codes.FailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}

	if code == codes.Internal {
		s.logger.Error().Err(err).Str("method", method).Msg("Request failed")
	}

	return status.Error(code, err.Error())
}

var _ ValuationServiceServer = (*Server)(nil)
