package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/matrixise/sui-friday/internal/balance"
	"github.com/matrixise/sui-friday/internal/blockchain"
	"github.com/matrixise/sui-friday/internal/mint"
	"github.com/matrixise/sui-friday/internal/notify"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, "home", page{Title: "Home"})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, "leaderboard", page{
		Title:  "Coin Leaderboard",
		Active: "leaderboard",
		Board:  newBoardView(s.board.Board()),
	})
}

func (s *Server) mintView() *mintView {
	state := s.tracker.State()
	limit := s.tracker.Limit()
	settings := s.minter.Settings()

	view := &mintView{
		Loading:         !state.Loaded,
		MintCount:       state.MintCount,
		Limit:           limit,
		Price:           balance.ToMajorUnitsUint(settings.Price),
		SoldOut:         state.SoldOut(limit),
		HasWallet:       s.minter.HasWallet(),
		InFlight:        s.minter.InFlight(),
		Account:         s.minter.Account(),
		MintedAddresses: state.MintedAddresses,
		Notifications:   s.feed.Recent(recentNotifications),
	}
	// advisory only; the orchestrator enforces the real guards
	view.Disabled = !view.HasWallet || view.SoldOut || view.InFlight

	if s.account != nil {
		if bal := s.account.Balance(); bal.Loaded {
			view.AccountBalance = bal.Display()
		}
	}
	return view
}

func (s *Server) handleMintPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "mint", page{
		Title:  "NFT mint",
		Active: "mint",
		Mint:   s.mintView(),
	})
}

// handleMintSubmit runs one attempt and redirects back to the mint page,
// where the outcome shows up in the notification list.
func (s *Server) handleMintSubmit(w http.ResponseWriter, r *http.Request) {
	out := s.minter.Mint(detach(r))
	slog.Info("Mint requested from web", "state", out.State, "code", out.Code, "digest", out.Digest)
	http.Redirect(w, r, "/nft-mint", http.StatusSeeOther)
}

func (s *Server) handleLeaderboardAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newLeaderboardJSON(s.board.Board()))
}

func (s *Server) handleHistoryAPI(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "balance history is not enabled")
		return
	}

	addr, err := blockchain.NormalizeAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := s.board.Entry(addr); !ok {
		writeError(w, http.StatusNotFound, "wallet is not on the leaderboard")
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	history, err := s.history.History(r.Context(), addr, limit)
	if err != nil {
		slog.Error("Failed to read balance history", "address", addr, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read balance history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": addr,
		"history": history,
	})
}

func (s *Server) handleMintAPI(w http.ResponseWriter, r *http.Request) {
	state := s.tracker.State()
	limit := s.tracker.Limit()
	settings := s.minter.Settings()

	body := mintJSON{
		Loaded:          state.Loaded,
		MintCount:       state.MintCount,
		Limit:           limit,
		SoldOut:         state.SoldOut(limit),
		PriceMist:       settings.Price,
		PriceSUI:        balance.ToMajorUnitsUint(settings.Price),
		MintedAddresses: state.MintedAddresses,
		UpdatedAt:       state.UpdatedAt,
		HasWallet:       s.minter.HasWallet(),
		Account:         s.minter.Account(),
		State:           string(s.minter.State()),
		InFlight:        s.minter.InFlight(),
	}
	if s.account != nil {
		if bal := s.account.Balance(); bal.Loaded {
			body.AccountBalance = bal.TotalMinor.String()
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleMintSubmitAPI(w http.ResponseWriter, r *http.Request) {
	out := s.minter.Mint(detach(r))
	writeJSON(w, outcomeStatus(out), newOutcomeJSON(out))
}

// detach keeps the request values but drops its cancellation, so a client
// disconnect does not abandon a submitted transaction.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// outcomeStatus maps a terminal mint state to an HTTP status
func outcomeStatus(out mint.Outcome) int {
	switch out.State {
	case mint.StateSuccess:
		return http.StatusOK
	case mint.StateFailure:
		return http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(out.Err, mint.ErrMintInProgress):
		return http.StatusConflict
	case errors.Is(out.Err, mint.ErrNoWallet):
		return http.StatusPreconditionFailed
	case errors.Is(out.Err, mint.ErrClientException):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleNotificationsAPI(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items := s.feed.Recent(limit)
	if items == nil {
		items = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items})
}

// queryInt reads a non-negative integer query parameter, 0 when absent
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("invalid " + name + " parameter")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
