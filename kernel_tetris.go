// kernel_tetris.go - Falling-block game engine and session state machine

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

/*
kernel_tetris.go - Game Engine

The playfield is a 10x20 grid of colour words indexed [x][y], zero
meaning empty. The falling piece is not tracked separately from the
grid: its four blocks are marked in the grid with the piece colour,
and the piece value is just four coordinates pointing at them. Every
placement query follows the same two-phase protocol, blank the four
current cells, test the candidate cells against the grid, adopt the
candidate if it fits, then repaint the colour at whatever the four
coordinates now are. The piece can therefore never collide with
itself and the grid is consistent again before anyone else looks.

Rotation normalizes the blocks to their bounding box origin, maps
(x,y) to (y, 1-(x-(ext-2))) where ext is the box side per piece type,
and translates back. A rotation that does not fit is dropped with no
kick attempt. Spawning is the same fit test at the spawn column, and
a failed spawn is the game over condition.

The session state machine steps once per main loop pass, clocked by
tick deltas read from the timer driver. Descend moves the piece down
each time the fall delay expires, soft drop shrinks the delay to
zero while held. A locked piece either spawns the next one or, when
full rows exist, detours through RowFlash (toggle the row glyphs
every 10 ticks, four times) and RowRemove (shift the stack down,
score by simultaneous-clear count, advance the level every 10 lines).

Each pass ends by translating the grids into frame store cells,
flushing the diff, and halting until the next interrupt. The loop
runs at interrupt rate, not a busy spin.
*/

const (
	GRID_SIZE_X = 10
	GRID_SIZE_Y = 20

	NEXT_GRID_SIZE_X = 4
	NEXT_GRID_SIZE_Y = 4

	// Spawn column for a new piece entering the playfield
	SPAWN_OFFSET_X = 4

	PIECE_TYPES = 7

	PIECE_LINE      = 0
	PIECE_L         = 1
	PIECE_REVERSE_L = 2
	PIECE_SQUARE    = 3
	PIECE_5         = 4
	PIECE_S         = 5
	PIECE_T         = 6

	MOVE_DOWN  = 0
	MOVE_LEFT  = 1
	MOVE_RIGHT = 2

	STATE_CREATE_PIECE = 0
	STATE_DESCEND      = 1
	STATE_ROW_FLASH    = 2
	STATE_ROW_REMOVE   = 3
	STATE_GAME_OVER    = 4
	STATE_PAUSED       = 5

	// Ticks between gravity steps at level 0, reduced by 10 per level
	INITIAL_FALL_DELAY = 90
	DROP_FALL_DELAY    = 0
)

// playGrid is the playfield, indexed [x][y], holding a colour
// attribute word per occupied cell and zero for empty.
type playGrid [GRID_SIZE_X][GRID_SIZE_Y]uint16

// previewGrid shows the next piece, same cell encoding.
type previewGrid [NEXT_GRID_SIZE_X][NEXT_GRID_SIZE_Y]uint16

// tetromino is four block coordinates, [block][0]=x [block][1]=y.
type tetromino [4][2]int

// Block layouts per piece type at offset zero. Block order is load
// bearing: block 0 is where the colour is sampled during the
// blank-test-restore protocol, and rotation maps blocks one to one.
var pieceBlocks = [PIECE_TYPES]tetromino{
	PIECE_LINE:      {{0, 1}, {1, 1}, {2, 1}, {3, 1}},
	PIECE_L:         {{0, 0}, {2, 1}, {1, 0}, {2, 0}},
	PIECE_REVERSE_L: {{0, 0}, {0, 1}, {1, 0}, {2, 0}},
	PIECE_SQUARE:    {{1, 0}, {2, 0}, {1, 1}, {2, 1}},
	PIECE_5:         {{1, 0}, {2, 0}, {0, 1}, {1, 1}},
	PIECE_S:         {{0, 0}, {1, 0}, {1, 1}, {2, 1}},
	PIECE_T:         {{0, 0}, {1, 0}, {2, 0}, {1, 1}},
}

// Bounding box side length per piece type, used to center rotation.
var pieceExtent = [PIECE_TYPES]int{
	PIECE_LINE:      4,
	PIECE_L:         3,
	PIECE_REVERSE_L: 3,
	PIECE_SQUARE:    2,
	PIECE_5:         3,
	PIECE_S:         3,
	PIECE_T:         3,
}

// Colour attribute per piece type, character byte left zero.
var blockColours = [PIECE_TYPES]uint16{
	PIECE_LINE:      0x0700, // light grey
	PIECE_L:         0x0400, // red
	PIECE_REVERSE_L: 0x0200, // green
	PIECE_SQUARE:    0x0100, // blue
	PIECE_5:         0x0500, // magenta
	PIECE_S:         0x0E00, // yellow
	PIECE_T:         0x0300, // cyan
}

// pieceFits reports whether all four blocks are in bounds and land
// on empty grid cells. Callers blank the piece's own cells first.
func pieceFits(t *tetromino, grid *playGrid) bool {
	for _, b := range t {
		if b[0] < 0 || b[0] >= GRID_SIZE_X || b[1] < 0 || b[1] >= GRID_SIZE_Y {
			return false
		}
		if grid[b[0]][b[1]] != 0 {
			return false
		}
	}

	return true
}

// setupTetromino loads the block layout for a piece type shifted
// right by offsetX.
func setupTetromino(t *tetromino, piece, offsetX int) {
	*t = pieceBlocks[piece]
	for i := range t {
		t[i][0] += offsetX
	}
}

// createTetromino spawns a piece at the spawn column, marking its
// colour into the grid when it fits. A false return means the spawn
// cells were blocked, which ends the game.
func createTetromino(t *tetromino, grid *playGrid, piece int) bool {
	setupTetromino(t, piece, SPAWN_OFFSET_X)

	if !pieceFits(t, grid) {
		return false
	}

	for _, b := range t {
		grid[b[0]][b[1]] = blockColours[piece]
	}

	return true
}

// createNextTetromino lays the piece out in the preview grid at
// offset zero, clearing the previous preview first.
func createNextTetromino(t *tetromino, grid *previewGrid, piece int) {
	setupTetromino(t, piece, 0)

	for x := range grid {
		for y := range grid[x] {
			grid[x][y] = 0
		}
	}

	for _, b := range t {
		grid[b[0]][b[1]] = blockColours[piece]
	}
}

// moveTetromino shifts the piece one cell in the given direction if
// the destination is free, reporting whether it moved.
func moveTetromino(t *tetromino, grid *playGrid, direction int) bool {
	moved := false
	moveTo := *t

	switch direction {
	case MOVE_DOWN:
		for i := range moveTo {
			moveTo[i][1]++
		}
	case MOVE_LEFT:
		for i := range moveTo {
			moveTo[i][0]--
		}
	case MOVE_RIGHT:
		for i := range moveTo {
			moveTo[i][0]++
		}
	}

	colour := grid[t[0][0]][t[0][1]]
	for _, b := range t {
		grid[b[0]][b[1]] = 0
	}

	if pieceFits(&moveTo, grid) {
		*t = moveTo
		moved = true
	}

	for _, b := range t {
		grid[b[0]][b[1]] = colour
	}

	return moved
}

// rotateTetromino turns the piece a quarter turn in place. A
// rotation that does not fit is discarded, there is no kick search.
func rotateTetromino(t *tetromino, grid *playGrid, pieceType int) {
	lowestX := t[0][0]
	lowestY := t[0][1]
	for _, b := range t[1:] {
		if lowestX > b[0] {
			lowestX = b[0]
		}
		if lowestY > b[1] {
			lowestY = b[1]
		}
	}

	ext := pieceExtent[pieceType]

	var rotated tetromino
	for i, b := range t {
		localX := b[0] - lowestX
		localY := b[1] - lowestY
		rotated[i][0] = localY + lowestX
		rotated[i][1] = 1 - (localX - (ext - 2)) + lowestY
	}

	colour := grid[t[0][0]][t[0][1]]
	for _, b := range t {
		grid[b[0]][b[1]] = 0
	}

	if pieceFits(&rotated, grid) {
		*t = rotated
	}

	for _, b := range t {
		grid[b[0]][b[1]] = colour
	}
}

// findFullRows scans top to bottom for rows with every cell
// occupied, recording their indices and returning how many. At most
// four rows can complete at once.
func findFullRows(grid *playGrid, rows *[4]int) int {
	count := 0

	for y := 0; y < GRID_SIZE_Y; y++ {
		full := true
		for x := 0; x < GRID_SIZE_X; x++ {
			if grid[x][y] == 0 {
				full = false
				break
			}
		}

		if full {
			rows[count] = y
			count++
		}
	}

	return count
}

// cycleFullRows toggles the glyph byte of every cell in the pending
// rows between '#' and ' ', producing the clear flash.
func cycleFullRows(grid *playGrid, rows *[4]int) {
	for _, row := range rows {
		if row == -1 {
			continue
		}

		for x := 0; x < GRID_SIZE_X; x++ {
			if grid[x][row]&0x00FF == '#' {
				grid[x][row] &= 0xFF20
			} else {
				grid[x][row] |= '#'
			}
		}
	}
}

// removeFullRows clears each pending row, shifts everything above it
// down one, and resets the slots, returning the number removed. Rows
// were recorded in ascending order so the shifts never disturb a
// slot still waiting.
func removeFullRows(grid *playGrid, rows *[4]int) int {
	count := 0

	for i, row := range rows {
		if row == -1 {
			continue
		}

		count++

		for x := 0; x < GRID_SIZE_X; x++ {
			grid[x][row] = 0
		}

		for y := row; y != 0; y-- {
			for x := 0; x < GRID_SIZE_X; x++ {
				grid[x][y] = grid[x][y-1]
			}
		}

		rows[i] = -1
	}

	return count
}

// GameExit tells the kernel why a game session returned.
type GameExit int

const (
	GAME_EXIT_RESTART GameExit = iota
	GAME_EXIT_STOPPED
	GAME_EXIT_RESET
)

// TetrisGame runs one game session per Run call against the drivers
// it was built with.
type TetrisGame struct {
	cpu   *IntrUnit
	timer *TimerDriver
	keyb  *KeybDriver
	frame *FrameStore
}

func NewTetrisGame(cpu *IntrUnit, timer *TimerDriver, keyb *KeybDriver, frame *FrameStore) *TetrisGame {
	return &TetrisGame{
		cpu:   cpu,
		timer: timer,
		keyb:  keyb,
		frame: frame,
	}
}

// randomPiece picks a piece type by sampling the tick counter.
// TODO: seed a real PRNG at boot instead of sampling ticks
func (g *TetrisGame) randomPiece() int {
	return int(g.timer.Ticks() % PIECE_TYPES)
}

// stageString stages a white-on-black label into the frame store.
func (g *TetrisGame) stageString(row, col int, text string) {
	for i := 0; i < len(text); i++ {
		g.frame.SetCell(row, col+i, 0x0F00|uint16(text[i]))
	}
}

// drawNumber stages a left-aligned decimal value into the frame
// store, blanking an eight cell field first.
func (g *TetrisGame) drawNumber(row, col, value int) {
	for i := 0; i < 8; i++ {
		g.frame.SetCell(row, col+i, 0x0F00|uint16(' '))
	}

	var digits [8]int
	count := 0
	if value == 0 {
		digits[0] = 0
		count = 1
	} else {
		for value != 0 {
			digits[count] = value % 10
			count++
			value /= 10
		}
	}

	for i := 0; i < count; i++ {
		g.frame.SetCell(row, col+i, 0x0F00|uint16('0'+digits[count-1-i]))
	}
}

// Run plays one session from first spawn to restart, machine stop or
// reset. The caller reinitializes the frame store and calls again
// for the next session.
func (g *TetrisGame) Run() GameExit {
	gen := g.cpu.ResetGeneration()

	g.frame.ClearScreen()

	quit := false
	pause := false
	left := false
	right := false
	up := false
	down := false
	keyPressed := false
	downPressed := false

	state := STATE_DESCEND
	flashCount := 0
	lines := 0
	level := 0
	score := 0
	fallDelay := INITIAL_FALL_DELAY

	var grid playGrid
	var nextGrid previewGrid

	var piece tetromino
	var nextPiece tetromino
	current := 0
	next := -1
	removeRows := [4]int{-1, -1, -1, -1}

	var lastMove uint64

	// Playfield walls and floor
	for i := 0; i < GRID_SIZE_Y; i++ {
		g.frame.SetCell(i, GRID_SIZE_X+1, 0x0F00|uint16('#'))
	}
	for i := 0; i < GRID_SIZE_Y; i++ {
		g.frame.SetCell(i, 0, 0x0F00|uint16('#'))
	}
	for i := 0; i < GRID_SIZE_X+2; i++ {
		g.frame.SetCell(GRID_SIZE_Y, i, 0x0F00|uint16('#'))
	}

	// Side panel labels
	g.stageString(2, GRID_SIZE_X+6, "NEXT:")
	g.stageString(7, GRID_SIZE_X+6, "LINES:")
	g.stageString(8, GRID_SIZE_X+6, "LEVEL:")
	g.stageString(9, GRID_SIZE_X+6, "SCORE:")

	g.drawNumber(7, GRID_SIZE_X+13, lines)
	g.drawNumber(9, GRID_SIZE_X+13, score)
	g.drawNumber(8, GRID_SIZE_X+13, level)

	// The controls block is static for the whole session, written
	// straight to video memory past the diff buffers
	g.frame.WriteString("CONTROLS", 0x0F00, 15, GRID_SIZE_X+6)
	g.frame.WriteString("a - Left", 0x0F00, 16, GRID_SIZE_X+6)
	g.frame.WriteString("d - Right", 0x0F00, 17, GRID_SIZE_X+6)
	g.frame.WriteString("s - Drop", 0x0F00, 18, GRID_SIZE_X+6)
	g.frame.WriteString("w - Rotate", 0x0F00, 19, GRID_SIZE_X+6)
	g.frame.WriteString("p - Pause", 0x0F00, 20, GRID_SIZE_X+6)
	g.frame.WriteString("r - Restart", 0x0F00, 21, GRID_SIZE_X+6)
	g.frame.WriteString("q - Halt CPU", 0x0F00, 22, GRID_SIZE_X+6)

	current = g.randomPiece()
	createTetromino(&piece, &grid, current)

	for !quit {
		if ev, ok := g.keyb.Poll(); ok {
			switch ev.Char {
			case 'a':
				left = ev.Pressed
			case 'd':
				right = ev.Pressed
			case 'w':
				up = ev.Pressed
			case 's':
				down = ev.Pressed
			case 'q':
				quit = ev.Pressed
			case 'p':
				pause = ev.Pressed
			case 'r':
				if ev.Pressed {
					return GAME_EXIT_RESTART
				}
			}
		}

		if next == -1 {
			next = g.randomPiece()
			createNextTetromino(&nextPiece, &nextGrid, next)
		}

		// A new discrete action needs every key up in between, held
		// keys do not repeat
		if !left && !right && !up && !down && !pause {
			keyPressed = false
		}
		if !down {
			downPressed = false
		}

		if state == STATE_DESCEND && !keyPressed && (left || right || up || down || pause) {
			if left {
				moveTetromino(&piece, &grid, MOVE_LEFT)
			}
			if right {
				moveTetromino(&piece, &grid, MOVE_RIGHT)
			}
			if down {
				downPressed = true
			}
			if up {
				rotateTetromino(&piece, &grid, current)
			}
			if pause {
				state = STATE_PAUSED
			}

			keyPressed = true
		} else if state == STATE_PAUSED && !keyPressed && pause {
			g.frame.WriteString("      ", 0x0200, 11, GRID_SIZE_X+6)
			state = STATE_DESCEND

			keyPressed = true
		}

		now := g.timer.Ticks()
		timediff := now - lastMove

		switch state {
		case STATE_CREATE_PIECE:
			if createTetromino(&piece, &grid, next) {
				current = next
				next = -1
				state = STATE_DESCEND
				downPressed = false
			} else {
				state = STATE_GAME_OVER
			}

		case STATE_DESCEND:
			delay := fallDelay
			if downPressed {
				delay = DROP_FALL_DELAY
			}

			if timediff > uint64(delay) {
				if !moveTetromino(&piece, &grid, MOVE_DOWN) {
					if findFullRows(&grid, &removeRows) > 0 {
						state = STATE_ROW_FLASH
					} else {
						state = STATE_CREATE_PIECE
					}
				}

				lastMove = now
			}

		case STATE_ROW_FLASH:
			if timediff > 10 {
				if flashCount < 4 {
					cycleFullRows(&grid, &removeRows)
					flashCount++
				} else {
					flashCount = 0
					state = STATE_ROW_REMOVE
				}

				lastMove = now
			}

		case STATE_ROW_REMOVE:
			removed := removeFullRows(&grid, &removeRows)
			lines += removed
			if lines > 9999 {
				lines = 9999
			}
			g.drawNumber(7, GRID_SIZE_X+13, lines)

			switch removed {
			case 1:
				score += 40 * (level + 1)
			case 2:
				score += 100 * (level + 1)
			case 3:
				score += 300 * (level + 1)
			case 4:
				score += 1200 * (level + 1)
			}
			if score > 99999999 {
				score = 99999999
			}
			g.drawNumber(9, GRID_SIZE_X+13, score)

			if level != 9 && lines >= (level*10)+10 {
				level++
				fallDelay -= 10

				g.drawNumber(8, GRID_SIZE_X+13, level)
			}

			state = STATE_CREATE_PIECE

		case STATE_GAME_OVER:
			g.frame.WriteString("GAME OVER", 0x0400, 12, GRID_SIZE_X+6)

		case STATE_PAUSED:
			g.frame.WriteString("PAUSED", 0x0200, 11, GRID_SIZE_X+6)
		}

		// Translate the grids into frame cells. Occupied cells whose
		// glyph byte was flashed to space render as solid colour
		// blanks, everything else as '#'.
		for x := 0; x < GRID_SIZE_X; x++ {
			for y := 0; y < GRID_SIZE_Y; y++ {
				switch {
				case grid[x][y] == 0:
					g.frame.SetCell(y, x+1, 0x0700|uint16(' '))
				case grid[x][y]&0x00FF == ' ':
					g.frame.SetCell(y, x+1, grid[x][y]|uint16(' '))
				default:
					g.frame.SetCell(y, x+1, grid[x][y]|uint16('#'))
				}
			}
		}

		for x := 0; x < NEXT_GRID_SIZE_X; x++ {
			for y := 0; y < NEXT_GRID_SIZE_Y; y++ {
				if nextGrid[x][y] == 0 {
					g.frame.SetCell(y+3, x+GRID_SIZE_X+6, 0x0700|uint16(' '))
				} else {
					g.frame.SetCell(y+3, x+GRID_SIZE_X+6, nextGrid[x][y]|uint16('#'))
				}
			}
		}

		g.frame.Flush()

		g.cpu.Halt()

		if g.cpu.Stopping() {
			return GAME_EXIT_STOPPED
		}
		if g.cpu.ResetGeneration() != gen {
			return GAME_EXIT_RESET
		}
	}

	// 'q' parks the CPU with interrupts off until the machine is
	// stopped or reset
	g.frame.WriteString("CPU HALTED", 0x0100, 13, GRID_SIZE_X+6)
	g.cpu.DisableInterrupts()

	for {
		g.cpu.Halt()

		if g.cpu.Stopping() {
			return GAME_EXIT_STOPPED
		}
		if g.cpu.ResetGeneration() != gen {
			return GAME_EXIT_RESET
		}
	}
}
