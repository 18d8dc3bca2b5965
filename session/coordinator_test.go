package session

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/wfunc/connect4/game"
	"github.com/wfunc/connect4/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// MockRegistry is a test double for the Registry interface.
type MockRegistry struct {
	seats       map[string]int // playerID -> seat
	hasComputer bool
}

func (m *MockRegistry) SeatNumber(roomID, playerID string) (int, error) {
	if seat, exists := m.seats[playerID]; exists {
		return seat, nil
	}
	return 0, errors.New("player not found")
}

func (m *MockRegistry) HasComputer(roomID string) (bool, error) {
	return m.hasComputer, nil
}

// MockNotifier records broadcast snapshots.
type MockNotifier struct {
	mutex     sync.Mutex
	snapshots []*game.Snapshot
}

func (m *MockNotifier) BroadcastState(roomID string, snap *game.Snapshot) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.snapshots = append(m.snapshots, snap)
}

func (m *MockNotifier) count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.snapshots)
}

// firstColumnPolicy always plays the lowest-numbered open column.
type firstColumnPolicy struct{}

func (firstColumnPolicy) ChooseMove(b *game.Board) int {
	return b.LegalMoves()[0]
}

func newTestCoordinator(registry *MockRegistry) (*Coordinator, *MockNotifier) {
	notifier := &MockNotifier{}
	return NewCoordinator(registry, notifier, firstColumnPolicy{}), notifier
}

func twoHumans() *MockRegistry {
	return &MockRegistry{seats: map[string]int{"p1": 1, "p2": 2}}
}

func TestEnsure_NoDuplicateSessions(t *testing.T) {
	c, _ := newTestCoordinator(twoHumans())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Ensure("room-1")
		}()
	}
	wg.Wait()

	if n := c.SessionCount(); n != 1 {
		t.Errorf("Expected exactly one session, got %d", n)
	}
}

func TestSubmitMove_UnknownPlayer(t *testing.T) {
	c, notifier := newTestCoordinator(twoHumans())

	if _, err := c.SubmitMove("room-1", "stranger", 0); err == nil {
		t.Error("Expected an error for an unknown player")
	}
	if notifier.count() != 0 {
		t.Error("Rejected move must not broadcast")
	}
}

func TestSubmitMove_WrongTurn(t *testing.T) {
	c, notifier := newTestCoordinator(twoHumans())

	_, err := c.SubmitMove("room-1", "p2", 0)
	var wrongTurn *WrongTurnError
	if !errors.As(err, &wrongTurn) {
		t.Fatalf("Expected WrongTurnError, got %v", err)
	}
	if wrongTurn.ActiveSeat != 1 {
		t.Errorf("Error should name seat 1, got %d", wrongTurn.ActiveSeat)
	}
	if wrongTurn.Error() != "It's not your turn! Current turn: Red Team" {
		t.Errorf("Unexpected message: %q", wrongTurn.Error())
	}

	// The board is untouched by the rejection.
	c.Ensure("room-1")
	snap, err := c.Snapshot("room-1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.ActiveSeat != 1 || *game.NewBoard().Snapshot() != *snap {
		t.Error("Rejected move changed the board")
	}
	if notifier.count() != 0 {
		t.Error("Rejected move must not broadcast")
	}
}

func TestSubmitMove_InvalidColumn(t *testing.T) {
	c, _ := newTestCoordinator(twoHumans())

	for _, col := range []int{-1, 7} {
		if _, err := c.SubmitMove("room-1", "p1", col); !errors.Is(err, game.ErrInvalidColumn) {
			t.Errorf("SubmitMove(%d): expected ErrInvalidColumn, got %v", col, err)
		}
	}
}

func TestSubmitMove_BroadcastsAndReturnsSnapshot(t *testing.T) {
	c, notifier := newTestCoordinator(twoHumans())

	snap, err := c.SubmitMove("room-1", "p1", 3)
	if err != nil {
		t.Fatalf("SubmitMove failed: %v", err)
	}
	if snap.Board[5][3] != game.Seat1 {
		t.Error("Returned snapshot missing the applied move")
	}
	if snap.ActiveSeat != 2 {
		t.Errorf("Expected turn to pass to seat 2, got %d", snap.ActiveSeat)
	}
	if notifier.count() != 1 {
		t.Fatalf("Expected one broadcast, got %d", notifier.count())
	}
}

func TestSubmitMove_ComputerRepliesInline(t *testing.T) {
	registry := &MockRegistry{seats: map[string]int{"p1": 1}, hasComputer: true}
	c, notifier := newTestCoordinator(registry)

	snap, err := c.SubmitMove("room-1", "p1", 3)
	if err != nil {
		t.Fatalf("SubmitMove failed: %v", err)
	}

	// Human and computer moves land in one snapshot and one broadcast.
	if snap.Board[5][3] != game.Seat1 {
		t.Error("Human move missing from snapshot")
	}
	if snap.Board[5][0] != game.Seat2 {
		t.Error("Computer reply missing from snapshot")
	}
	if snap.ActiveSeat != 1 {
		t.Errorf("Turn should be back with seat 1, got %d", snap.ActiveSeat)
	}
	if notifier.count() != 1 {
		t.Errorf("Expected a single broadcast for the combined transition, got %d", notifier.count())
	}
}

func TestSubmitMove_NoComputerReplyAfterGameEnd(t *testing.T) {
	registry := &MockRegistry{seats: map[string]int{"p1": 1}, hasComputer: true}
	c, _ := newTestCoordinator(registry)

	// The policy stacks column 0 for the computer; the human stacks column 3.
	// Human wins on the fourth stack before the computer can reply.
	for i := 0; i < 3; i++ {
		if _, err := c.SubmitMove("room-1", "p1", 3); err != nil {
			t.Fatalf("Move %d failed: %v", i, err)
		}
	}
	snap, err := c.SubmitMove("room-1", "p1", 3)
	if err != nil {
		t.Fatalf("Winning move failed: %v", err)
	}

	if !snap.Finished || snap.Winner == nil || *snap.Winner != 1 {
		t.Fatalf("Expected seat 1 vertical win, got %+v", snap)
	}
	if snap.Board[2][0] != game.Empty {
		t.Error("Computer must not move after the game ended")
	}
	if snap.ActiveSeat != 1 {
		t.Errorf("Active seat must not flip after the winning move, got %d", snap.ActiveSeat)
	}
}

func TestReset(t *testing.T) {
	c, notifier := newTestCoordinator(twoHumans())

	if _, err := c.SubmitMove("room-1", "p1", 3); err != nil {
		t.Fatalf("SubmitMove failed: %v", err)
	}
	snap, err := c.Reset("room-1")
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	if *snap != *game.NewBoard().Snapshot() {
		t.Error("Reset snapshot differs from a fresh board")
	}
	if notifier.count() != 2 {
		t.Errorf("Expected move + reset broadcasts, got %d", notifier.count())
	}
}

func TestReset_UnknownRoom(t *testing.T) {
	c, _ := newTestCoordinator(twoHumans())

	if _, err := c.Reset("nowhere"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestSnapshot_UnknownRoom(t *testing.T) {
	c, _ := newTestCoordinator(twoHumans())

	if _, err := c.Snapshot("nowhere"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

// TestSubmitMove_SerializedPerRoom hammers one room from both seats and
// checks that the final mark count matches the number of accepted moves:
// interleaved read-modify-write would lose or duplicate marks.
func TestSubmitMove_SerializedPerRoom(t *testing.T) {
	c, _ := newTestCoordinator(twoHumans())

	var wg sync.WaitGroup
	var acceptedCount int64
	var countMutex sync.Mutex

	for i := 0; i < 100; i++ {
		for _, player := range []string{"p1", "p2"} {
			wg.Add(1)
			go func(player string, col int) {
				defer wg.Done()
				if _, err := c.SubmitMove("room-1", player, col); err == nil {
					countMutex.Lock()
					acceptedCount++
					countMutex.Unlock()
				}
			}(player, i%game.Columns)
		}
	}
	wg.Wait()

	snap, err := c.Snapshot("room-1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	marks := 0
	for r := 0; r < game.Rows; r++ {
		for col := 0; col < game.Columns; col++ {
			if snap.Board[r][col] != game.Empty {
				marks++
			}
		}
	}
	if int64(marks) != acceptedCount {
		t.Errorf("Accepted %d moves but board holds %d marks", acceptedCount, marks)
	}
}

func TestDropAll(t *testing.T) {
	c, _ := newTestCoordinator(twoHumans())
	c.Ensure("room-1")
	c.Ensure("room-2")

	c.DropAll()
	if n := c.SessionCount(); n != 0 {
		t.Errorf("Expected no sessions after DropAll, got %d", n)
	}
}
