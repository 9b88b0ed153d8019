// Package service implements the read-only tripsplit report API over Connect.
//
// Messages are google.protobuf.Struct values, so clients in any Connect, gRPC or gRPC-Web
// runtime can call the API without generated stubs.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/tripsplit/internal/calculator"
	"github.com/mmynk/tripsplit/internal/currency"
	"github.com/mmynk/tripsplit/internal/ledger"
	"github.com/mmynk/tripsplit/internal/storage"
)

// ReportServiceName is the fully-qualified name of the report service.
const ReportServiceName = "tripsplit.v1.ReportService"

// Procedure paths of the report service.
const (
	ListTripsProcedure     = "/" + ReportServiceName + "/ListTrips"
	ListEntriesProcedure   = "/" + ReportServiceName + "/ListEntries"
	GetSettlementProcedure = "/" + ReportServiceName + "/GetSettlement"
)

// amountPlaces is the rounding of amounts in responses.
const amountPlaces = calculator.DisplayPlaces

// ReportService serves trips, entries and settlements. Every call re-reads the store.
type ReportService struct {
	store storage.Store
	conv  *currency.Converter
}

// NewReportService creates a new ReportService with the given storage backend.
func NewReportService(store storage.Store, conv *currency.Converter) *ReportService {
	return &ReportService{store: store, conv: conv}
}

// ListTrips returns {trips: [{name, base_currency}]}.
func (s *ReportService) ListTrips(ctx context.Context, _ *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	trips, err := ledger.ListTrips(ctx, s.store)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	list := make([]any, 0, len(trips))
	for _, t := range trips {
		list = append(list, map[string]any{
			"name":          t.Name,
			"base_currency": t.BaseCurrency.String(),
		})
	}
	return respond(map[string]any{"trips": list})
}

// ListEntries returns {trip, base_currency, entries: [...]} for {trip}.
func (s *ReportService) ListEntries(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	l, err := s.open(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	entries := make([]any, 0, l.Len())
	for pos, e := range l.Entries() {
		entries = append(entries, map[string]any{
			"position":      pos,
			"date":          e.Date.String(),
			"name":          e.Name,
			"concept":       e.Concept.String(),
			"cost":          e.Cost.String(),
			"currency":      e.Currency.String(),
			"cost_in_base":  e.CostInBase.StringFixed(amountPlaces),
			"base_currency": e.BaseCurrency.String(),
		})
	}
	return respond(map[string]any{
		"trip":          l.Trip().Name,
		"base_currency": l.Trip().BaseCurrency.String(),
		"entries":       entries,
	})
}

// GetSettlement returns the balances and suggested transfers of {trip}.
// Amounts are decimal strings rounded to 2 places.
func (s *ReportService) GetSettlement(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	l, err := s.open(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	report := calculator.Settle(l)
	rounded := report.Rounded(amountPlaces)

	balances := make([]any, 0, len(rounded.Balances))
	for _, b := range rounded.Balances {
		balances = append(balances, map[string]any{
			"name":       b.Name,
			"spent":      b.Spent.StringFixed(amountPlaces),
			"fair_share": b.FairShare.StringFixed(amountPlaces),
			"balance":    b.Balance.StringFixed(amountPlaces),
		})
	}
	transfers := make([]any, 0)
	for _, t := range calculator.SuggestTransfers(report.Balances) {
		transfers = append(transfers, map[string]any{
			"from":   t.From,
			"to":     t.To,
			"amount": t.Amount.StringFixed(amountPlaces),
		})
	}

	return respond(map[string]any{
		"trip":          l.Trip().Name,
		"base_currency": l.Trip().BaseCurrency.String(),
		"empty":         report.Empty(),
		"total":         rounded.Total.StringFixed(amountPlaces),
		"fair_share":    rounded.FairShare.StringFixed(amountPlaces),
		"balances":      balances,
		"transfers":     transfers,
	})
}

// open reads the trip named by the "trip" field of msg.
func (s *ReportService) open(ctx context.Context, msg *structpb.Struct) (*ledger.Ledger, error) {
	name := msg.GetFields()["trip"].GetStringValue()
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("trip is required"))
	}
	l, err := ledger.Open(ctx, s.store, s.conv, name)
	if errors.Is(err, ledger.ErrTripNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	if err != nil {
		slog.Error("Failed to open ledger", "trip", name, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return l, nil
}

func respond(fields map[string]any) (*connect.Response[structpb.Struct], error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// NewReportServiceHandler builds an HTTP handler for the service.
// It returns the path on which to mount the handler and the handler itself.
func NewReportServiceHandler(svc *ReportService, opts ...connect.HandlerOption) (string, http.Handler) {
	listTrips := connect.NewUnaryHandler(ListTripsProcedure, svc.ListTrips, opts...)
	listEntries := connect.NewUnaryHandler(ListEntriesProcedure, svc.ListEntries, opts...)
	getSettlement := connect.NewUnaryHandler(GetSettlementProcedure, svc.GetSettlement, opts...)

	return "/" + ReportServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ListTripsProcedure:
			listTrips.ServeHTTP(w, r)
		case ListEntriesProcedure:
			listEntries.ServeHTTP(w, r)
		case GetSettlementProcedure:
			getSettlement.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// ReportClient calls a report service.
type ReportClient struct {
	listTrips     *connect.Client[structpb.Struct, structpb.Struct]
	listEntries   *connect.Client[structpb.Struct, structpb.Struct]
	getSettlement *connect.Client[structpb.Struct, structpb.Struct]
}

// NewReportClient returns a client for the service at baseURL (e.g. http://localhost:8080).
func NewReportClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ReportClient {
	return &ReportClient{
		listTrips:     connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ListTripsProcedure, opts...),
		listEntries:   connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ListEntriesProcedure, opts...),
		getSettlement: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+GetSettlementProcedure, opts...),
	}
}

// ListTrips calls ListTrips.
func (c *ReportClient) ListTrips(ctx context.Context) (*structpb.Struct, error) {
	resp, err := c.listTrips.CallUnary(ctx, connect.NewRequest(&structpb.Struct{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// ListEntries calls ListEntries for trip.
func (c *ReportClient) ListEntries(ctx context.Context, trip string) (*structpb.Struct, error) {
	resp, err := c.listEntries.CallUnary(ctx, connect.NewRequest(tripRequest(trip)))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// GetSettlement calls GetSettlement for trip.
func (c *ReportClient) GetSettlement(ctx context.Context, trip string) (*structpb.Struct, error) {
	resp, err := c.getSettlement.CallUnary(ctx, connect.NewRequest(tripRequest(trip)))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func tripRequest(trip string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"trip": structpb.NewStringValue(trip)}}
}
