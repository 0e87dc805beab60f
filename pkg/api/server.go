package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/perpdesk/pkg/app/core/market"
	"github.com/uhyunpark/perpdesk/pkg/app/core/mempool"
	"github.com/uhyunpark/perpdesk/pkg/app/core/orderplan"
	"github.com/uhyunpark/perpdesk/pkg/app/core/projector"
	"github.com/uhyunpark/perpdesk/pkg/app/core/transaction"
	"github.com/uhyunpark/perpdesk/pkg/crypto"
	"github.com/uhyunpark/perpdesk/pkg/errors"
	"github.com/uhyunpark/perpdesk/pkg/util"
)

// StateReader fetches raw account snapshots from the exchange node.
type StateReader interface {
	AccountState(ctx context.Context, address string) (projector.RawAccountState, error)
	Subaccounts(ctx context.Context, authority string) ([]projector.RawUserAccount, error)
}

// TxBroadcaster submits a verified transaction and reports its outcome.
type TxBroadcaster interface {
	Broadcast(ctx context.Context, tx *transaction.SignedTransaction) (transaction.BroadcastResult, error)
}

// Options wires a Server.
type Options struct {
	Markets     *market.Registry
	State       StateReader
	Broadcaster TxBroadcaster
	Domain      crypto.Domain
	Logger      *zap.SugaredLogger
	Clock       util.Clock
	CORSOrigins []string

	// RemainderToLastLeg makes ladder legs sum to the requested size.
	RemainderToLastLeg bool
}

// Server handles REST API and WebSocket connections
type Server struct {
	router      *mux.Router
	hub         *Hub
	logger      *zap.SugaredLogger
	clock       util.Clock
	corsOrigins []string

	markets     *market.Registry
	state       StateReader
	broadcaster TxBroadcaster
	typed       *crypto.TypedDataSigner
	verifier    *transaction.Verifier
	validate    *validator.Validate
	planOpts    []orderplan.Option
	pending     *mempool.Mempool
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	clock := opts.Clock
	if clock == nil {
		clock = util.RealClock{}
	}

	markets := opts.Markets
	if markets == nil {
		markets = market.NewDefaultRegistry()
	}

	var planOpts []orderplan.Option
	if opts.RemainderToLastLeg {
		planOpts = append(planOpts, orderplan.WithRemainderToLastLeg())
	}

	s := &Server{
		router:      mux.NewRouter(),
		hub:         NewHub(logger),
		logger:      logger,
		clock:       clock,
		corsOrigins: opts.CORSOrigins,
		markets:     markets,
		state:       opts.State,
		broadcaster: opts.Broadcaster,
		typed:       crypto.NewTypedDataSigner(opts.Domain),
		verifier:    transaction.NewVerifier(opts.Domain, clock),
		validate:    newValidator(),
		planOpts:    planOpts,
		pending:     mempool.NewMempool(clock),
	}

	s.setupRoutes()
	return s
}

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestID)

	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Market reference
	api.HandleFunc("/markets", s.handleGetMarkets).Methods("GET")

	// Order and transfer construction
	api.HandleFunc("/orders/plan", s.handlePlanOrder).Methods("POST")
	api.HandleFunc("/transfers/{kind:deposit|withdraw}", s.handleTransfer).Methods("POST")

	// Signed transaction submission
	api.HandleFunc("/transactions", s.handleSubmitTransaction).Methods("POST")

	// Account state
	api.HandleFunc("/authorities/{wallet}/subaccounts", s.handleGetSubaccounts).Methods("GET")
	api.HandleFunc("/subaccounts/{address}", s.handleGetSubaccount).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	origins := s.corsOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warnw("api_shutdown_error", "err", err)
		}
	}()

	s.logger.Infow("api_server_starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestID tags every request and response with an X-Request-ID.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data interface{}) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code string, message string) {
	respondJSONStatus(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// respondErr maps a coded error to its HTTP status.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := httpStatus(code)
	if status >= http.StatusInternalServerError {
		s.logger.Errorw("request_failed",
			"request_id", w.Header().Get("X-Request-ID"),
			"path", r.URL.Path,
			"code", code.String(),
			"err", err,
		)
	}
	respondError(w, status, code.String(), err.Error())
}

func httpStatus(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidSize,
		errors.ErrCodeInvalidSide,
		errors.ErrCodeMissingLimitPrice,
		errors.ErrCodeMissingTriggerPrice,
		errors.ErrCodeInvalidLadderRange,
		errors.ErrCodeInvalidOrderKind,
		errors.ErrCodeInvalidAmount,
		errors.ErrCodeInvalidMarket,
		errors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case errors.ErrCodeInvalidSignature:
		return http.StatusUnauthorized
	case errors.ErrCodeMarketNotFound, errors.ErrCodeAccountNotFound:
		return http.StatusNotFound
	case errors.ErrCodeDuplicateTx:
		return http.StatusConflict
	case errors.ErrCodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
func (s *Server) decodeAndValidate(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest, "invalid request body", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
			}
			return errors.Newf(errors.ErrCodeInvalidRequest, "invalid fields: %s", strings.Join(fields, ", "))
		}
		return errors.Wrap(errors.ErrCodeInvalidRequest, "invalid request", err)
	}
	return nil
}
