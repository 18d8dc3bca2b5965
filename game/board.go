// game/board.go
package game

import (
	"errors"
)

const (
	Rows    = 6
	Columns = 7
)

// Cell 表示棋盘上的一个格子
type Cell int

const (
	Empty Cell = iota
	Seat1
	Seat2
)

var (
	// ErrGameOver is returned when a move is submitted after the game finished.
	ErrGameOver = errors.New("game is already over")
	// ErrInvalidColumn covers both out-of-range columns and full columns.
	ErrInvalidColumn = errors.New("invalid move! column is full or out of bounds")
)

// Board 是一局四子棋的完整状态。行0为顶行，行5为底行。
// Board is not safe for concurrent use; the session coordinator serializes access.
type Board struct {
	grid       [Rows][Columns]Cell
	activeSeat int
	finished   bool
	winner     int // 0 = none
}

// Snapshot is the externally visible game state at one instant.
type Snapshot struct {
	Board      [Rows][Columns]Cell `json:"board"`
	ActiveSeat int                 `json:"active_seat"`
	Finished   bool                `json:"finished"`
	Winner     *int                `json:"winner"`
}

// NewBoard 创建一个空棋盘，座位1先手
func NewBoard() *Board {
	return &Board{activeSeat: 1}
}

// ActiveSeat returns the seat (1 or 2) whose turn it is. After a game-ending
// move the active seat does not flip: a finished game has no next turn.
func (b *Board) ActiveSeat() int {
	return b.activeSeat
}

// Finished reports whether the game has ended by win or draw.
func (b *Board) Finished() bool {
	return b.finished
}

// Winner returns the winning seat, or 0 for no winner (in progress or draw).
func (b *Board) Winner() int {
	return b.winner
}

// Cell returns the mark at the given position.
func (b *Board) Cell(row, col int) Cell {
	return b.grid[row][col]
}

// ApplyMove 将当前座位的棋子落入指定列
// The mark settles into the lowest empty row of the column. Termination is
// evaluated before the turn flips, and the flip is skipped when the move ends
// the game.
func (b *Board) ApplyMove(column int) error {
	if b.finished {
		return ErrGameOver
	}
	if column < 0 || column >= Columns {
		return ErrInvalidColumn
	}
	if b.grid[0][column] != Empty {
		return ErrInvalidColumn
	}

	row := -1
	for r := Rows - 1; r >= 0; r-- {
		if b.grid[r][column] == Empty {
			row = r
			break
		}
	}

	b.grid[row][column] = Cell(b.activeSeat)

	if b.checkWin(row, column) {
		b.finished = true
		b.winner = b.activeSeat
	} else if b.full() {
		b.finished = true
	} else {
		b.activeSeat = 3 - b.activeSeat
	}

	return nil
}

// checkWin scans the four directions around the just-placed cell for a run of
// four identical marks. Window starts are clipped to the grid so a run may
// begin up to three cells before the placed one.
func (b *Board) checkWin(row, col int) bool {
	mark := b.grid[row][col]

	// horizontal
	for c := max(0, col-3); c <= min(Columns-4, col); c++ {
		if b.grid[row][c] == mark && b.grid[row][c+1] == mark &&
			b.grid[row][c+2] == mark && b.grid[row][c+3] == mark {
			return true
		}
	}

	// vertical
	for r := max(0, row-3); r <= min(Rows-4, row); r++ {
		if b.grid[r][col] == mark && b.grid[r+1][col] == mark &&
			b.grid[r+2][col] == mark && b.grid[r+3][col] == mark {
			return true
		}
	}

	// diagonal, top-left to bottom-right
	for d := -3; d <= 0; d++ {
		r, c := row+d, col+d
		if r < 0 || c < 0 || r+3 >= Rows || c+3 >= Columns {
			continue
		}
		if b.grid[r][c] == mark && b.grid[r+1][c+1] == mark &&
			b.grid[r+2][c+2] == mark && b.grid[r+3][c+3] == mark {
			return true
		}
	}

	// diagonal, top-right to bottom-left
	for d := -3; d <= 0; d++ {
		r, c := row+d, col-d
		if r < 0 || c > Columns-1 || r+3 >= Rows || c-3 < 0 {
			continue
		}
		if b.grid[r][c] == mark && b.grid[r+1][c-1] == mark &&
			b.grid[r+2][c-2] == mark && b.grid[r+3][c-3] == mark {
			return true
		}
	}

	return false
}

// full reports whether every column is occupied. Cells settle top-down per
// column, so checking row 0 is sufficient.
func (b *Board) full() bool {
	for c := 0; c < Columns; c++ {
		if b.grid[0][c] == Empty {
			return false
		}
	}
	return true
}

// LegalMoves returns the columns whose top cell is still empty.
func (b *Board) LegalMoves() []int {
	moves := make([]int, 0, Columns)
	for c := 0; c < Columns; c++ {
		if b.grid[0][c] == Empty {
			moves = append(moves, c)
		}
	}
	return moves
}

// Reset 清空棋盘，恢复到初始状态
func (b *Board) Reset() {
	b.grid = [Rows][Columns]Cell{}
	b.activeSeat = 1
	b.finished = false
	b.winner = 0
}

// Snapshot captures the current state as a value, safe to hand to listeners
// after the room lock is released.
func (b *Board) Snapshot() *Snapshot {
	snap := &Snapshot{
		Board:      b.grid,
		ActiveSeat: b.activeSeat,
		Finished:   b.finished,
	}
	if b.winner != 0 {
		w := b.winner
		snap.Winner = &w
	}
	return snap
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
