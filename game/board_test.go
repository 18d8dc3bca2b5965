package game

import (
	"testing"
)

// play applies a sequence of columns, failing the test on any rejection.
func play(t *testing.T, b *Board, columns ...int) {
	t.Helper()
	for _, c := range columns {
		if err := b.ApplyMove(c); err != nil {
			t.Fatalf("ApplyMove(%d) rejected: %v", c, err)
		}
	}
}

func TestNewBoard(t *testing.T) {
	b := NewBoard()

	if b.ActiveSeat() != 1 {
		t.Errorf("Expected seat 1 to open, got %d", b.ActiveSeat())
	}
	if b.Finished() {
		t.Error("New board should not be finished")
	}
	if b.Winner() != 0 {
		t.Errorf("New board should have no winner, got %d", b.Winner())
	}
	for r := 0; r < Rows; r++ {
		for c := 0; c < Columns; c++ {
			if b.Cell(r, c) != Empty {
				t.Fatalf("Cell (%d,%d) not empty on new board", r, c)
			}
		}
	}
}

func TestApplyMove_TurnAlternates(t *testing.T) {
	b := NewBoard()

	// Legal moves that do not end the game must alternate the active seat.
	for i, col := range []int{0, 1, 2, 3, 4, 5} {
		want := 1 + i%2
		if b.ActiveSeat() != want {
			t.Fatalf("Before move %d: expected active seat %d, got %d", i, want, b.ActiveSeat())
		}
		play(t, b, col)
	}
}

func TestApplyMove_PieceSettlesToBottom(t *testing.T) {
	b := NewBoard()
	play(t, b, 3, 3, 3)

	if b.Cell(5, 3) != Seat1 {
		t.Errorf("Expected seat 1 mark at bottom, got %v", b.Cell(5, 3))
	}
	if b.Cell(4, 3) != Seat2 {
		t.Errorf("Expected seat 2 mark above it, got %v", b.Cell(4, 3))
	}
	if b.Cell(3, 3) != Seat1 {
		t.Errorf("Expected seat 1 mark on top, got %v", b.Cell(3, 3))
	}
}

func TestApplyMove_OutOfRange(t *testing.T) {
	for _, col := range []int{-1, 7, 100} {
		b := NewBoard()
		if err := b.ApplyMove(col); err != ErrInvalidColumn {
			t.Errorf("ApplyMove(%d): expected ErrInvalidColumn, got %v", col, err)
		}
		if b.ActiveSeat() != 1 {
			t.Errorf("Rejected move must not flip the turn")
		}
	}
}

func TestApplyMove_FullColumn(t *testing.T) {
	b := NewBoard()
	play(t, b, 0, 0, 0, 0, 0, 0) // six marks fill column 0

	before := b.Snapshot()
	if err := b.ApplyMove(0); err != ErrInvalidColumn {
		t.Fatalf("Expected ErrInvalidColumn for a full column, got %v", err)
	}
	after := b.Snapshot()

	if *before != *after {
		t.Error("Board changed by a rejected move")
	}
}

func TestVerticalWin(t *testing.T) {
	b := NewBoard()
	// Seat 1 stacks column 3, seat 2 plays column 0 in between.
	play(t, b, 3, 0, 3, 0, 3, 0, 3)

	if !b.Finished() {
		t.Fatal("Expected game to be finished after four in a column")
	}
	if b.Winner() != 1 {
		t.Errorf("Expected seat 1 to win, got %d", b.Winner())
	}
}

func TestHorizontalWin(t *testing.T) {
	b := NewBoard()
	// Seat 1 plays 0,1,2,3 across the bottom; seat 2 stacks column 6.
	play(t, b, 0, 6, 1, 6, 2, 6, 3)

	if !b.Finished() {
		t.Fatal("Expected game to be finished after four in a row")
	}
	if b.Winner() != 1 {
		t.Errorf("Expected seat 1 to win, got %d", b.Winner())
	}
}

func TestDiagonalWinUpRight(t *testing.T) {
	b := NewBoard()
	// Builds a / diagonal for seat 1 ending at (2,3).
	play(t, b,
		0, // s1 (5,0)
		1, // s2 (5,1)
		1, // s1 (4,1)
		2, // s2 (5,2)
		2, // s1 (4,2)
		3, // s2 (5,3)
		2, // s1 (3,2)
		3, // s2 (4,3)
		3, // s1 (3,3)
		6, // s2 (5,6)
		3, // s1 (2,3) completes the diagonal
	)

	if !b.Finished() {
		t.Fatal("Expected game to be finished after a diagonal run")
	}
	if b.Winner() != 1 {
		t.Errorf("Expected seat 1 to win, got %d", b.Winner())
	}
}

func TestDiagonalWinUpLeft(t *testing.T) {
	b := NewBoard()
	// Mirror image: \ diagonal for seat 1 ending at (2,3).
	play(t, b,
		6, // s1 (5,6)
		5, // s2 (5,5)
		5, // s1 (4,5)
		4, // s2 (5,4)
		4, // s1 (4,4)
		3, // s2 (5,3)
		4, // s1 (3,4)
		3, // s2 (4,3)
		3, // s1 (3,3)
		0, // s2 (5,0)
		3, // s1 (2,3) completes the diagonal
	)

	if !b.Finished() {
		t.Fatal("Expected game to be finished after a diagonal run")
	}
	if b.Winner() != 1 {
		t.Errorf("Expected seat 1 to win, got %d", b.Winner())
	}
}

func TestNoTurnFlipAfterWinningMove(t *testing.T) {
	b := NewBoard()
	play(t, b, 3, 0, 3, 0, 3, 0)

	if b.ActiveSeat() != 1 {
		t.Fatalf("Setup failed: expected seat 1 to move, got %d", b.ActiveSeat())
	}
	play(t, b, 3) // winning move

	// A finished game has no next turn: the active seat stays on the winner.
	if b.ActiveSeat() != 1 {
		t.Errorf("Active seat flipped after a game-ending move, got %d", b.ActiveSeat())
	}
}

func TestApplyMove_AfterGameOver(t *testing.T) {
	b := NewBoard()
	play(t, b, 3, 0, 3, 0, 3, 0, 3)

	if err := b.ApplyMove(1); err != ErrGameOver {
		t.Errorf("Expected ErrGameOver, got %v", err)
	}
}

func TestDraw(t *testing.T) {
	b := NewBoard()
	// Fills columns 0,1,4,5 with 1,2,1,2,1,2 bottom-up and 2,3,6 with the
	// inverse stack. Rows then read 1,1,2,2,1,1,2 or its complement and no
	// four consecutive columns alternate stack phase, so no direction ever
	// holds a run of four. The zigzag pair order keeps the turn alternation
	// consistent with those stacks.
	for _, pair := range [][]int{{0, 2}, {1, 3}, {4, 6}} {
		x, y := pair[0], pair[1]
		play(t, b, x, y, y, x, x, y, y, x, x, y, y, x)
	}
	play(t, b, 5, 5, 5, 5, 5, 5)

	if !b.Finished() {
		t.Fatal("Expected full board to finish the game")
	}
	if b.Winner() != 0 {
		t.Errorf("Expected a draw, got winner %d", b.Winner())
	}
	if b.Snapshot().Winner != nil {
		t.Error("Snapshot winner should be nil on a draw")
	}
}

func TestWinDetection_OrderIndependent(t *testing.T) {
	// The middle cell completes the run: X at columns 0,1,3 then 2.
	b := NewBoard()
	play(t, b, 0, 0, 1, 1, 3, 3, 2)

	if !b.Finished() {
		t.Fatal("Expected win when the gap cell completes the run")
	}
	if b.Winner() != 1 {
		t.Errorf("Expected seat 1 to win, got %d", b.Winner())
	}
}

func TestReset(t *testing.T) {
	b := NewBoard()
	play(t, b, 3, 0, 3, 0, 3, 0, 3)
	b.Reset()

	fresh := NewBoard()
	if *b.Snapshot() != *fresh.Snapshot() {
		t.Error("Reset board differs from a newly constructed board")
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	b := NewBoard()
	snap := b.Snapshot()
	play(t, b, 0)

	if snap.Board[5][0] != Empty {
		t.Error("Snapshot mutated by a later move")
	}
}
