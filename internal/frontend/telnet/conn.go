package telnet

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Telnet IAC (Interpret As Command) constants per RFC 854.
const (
	IAC  byte = 255 // Interpret As Command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // Sub-negotiation Begin
	SE   byte = 240 // Sub-negotiation End
	NOP  byte = 241
	GA   byte = 249 // Go Ahead

	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptLinemode        byte = 34
)

// MaxLineLength bounds a single input line in bytes.
const MaxLineLength = 4096

// ErrLineTooLong is returned when a client sends a line longer than MaxLineLength.
var ErrLineTooLong = errors.New("input line too long")

// Conn wraps a TCP connection with Telnet protocol handling. Reads are
// expected from a single goroutine; writes may come from any goroutine.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader

	mu     sync.Mutex
	prompt string

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps a raw TCP connection with Telnet protocol handling.
//
// Precondition: raw must be a valid, open network connection.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, MaxLineLength),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Negotiate asks the client to suppress go-ahead.
func (c *Conn) Negotiate() error {
	return c.Write([]byte{IAC, WILL, OptSuppressGoAhead})
}

// ReadLine reads one line of input with Telnet commands removed. Backspace
// and DEL erase the previous rune; other control bytes except tab are dropped.
//
// Postcondition: Returns the line without its terminator, or an error
// (io.EOF, a timeout, or ErrLineTooLong).
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	line := make([]byte, 0, 80)
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return string(line), err
		}

		switch {
		case b == IAC:
			if err := c.skipCommand(); err != nil {
				return string(line), err
			}
			continue
		case b == '\n':
			return string(line), nil
		case b == '\r':
			// Accept \r\n and \r\0 as one terminator.
			if next, err := c.reader.Peek(1); err == nil && (next[0] == '\n' || next[0] == 0) {
				_, _ = c.reader.ReadByte()
			}
			return string(line), nil
		case b == '\b' || b == 0x7f:
			if len(line) > 0 {
				_, size := utf8.DecodeLastRune(line)
				line = line[:len(line)-size]
			}
			continue
		case b < 32 && b != '\t':
			continue
		}

		if len(line) >= MaxLineLength {
			return "", ErrLineTooLong
		}
		line = append(line, b)
	}
}

// skipCommand consumes the rest of a Telnet command after its IAC byte.
func (c *Conn) skipCommand() error {
	cmd, err := c.reader.ReadByte()
	if err != nil {
		return err
	}

	switch cmd {
	case WILL, WONT, DO, DONT:
		_, err := c.reader.ReadByte()
		return err
	case SB:
		for {
			b, err := c.reader.ReadByte()
			if err != nil {
				return err
			}
			if b != IAC {
				continue
			}
			next, err := c.reader.ReadByte()
			if err != nil {
				return err
			}
			if next == SE {
				return nil
			}
		}
	}
	return nil
}

// Ask writes prompt and reads the trimmed reply.
func (c *Conn) Ask(prompt string) (string, error) {
	if err := c.WritePrompt(prompt); err != nil {
		return "", err
	}
	line, err := c.ReadLine()
	return strings.TrimSpace(line), err
}

// ReadPassword reads a line with client echo suppressed and restores echo
// afterwards, even on error.
func (c *Conn) ReadPassword() (string, error) {
	if err := c.Write([]byte{IAC, WILL, OptEcho}); err != nil {
		return "", err
	}
	line, err := c.ReadLine()
	_ = c.Write([]byte{IAC, WONT, OptEcho})
	_ = c.Write([]byte("\r\n"))
	return line, err
}

// SetPrompt records the prompt that Notify re-displays after async output.
func (c *Conn) SetPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompt = prompt
}

// Notify writes a line that arrived outside the command loop, then repeats
// the current prompt so the user's next input has context.
func (c *Conn) Notify(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write("\r\n" + text + "\r\n" + c.prompt)
}

// WriteLine sends text followed by \r\n.
//
// Precondition: text should not contain trailing newline characters.
func (c *Conn) WriteLine(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(text + "\r\n")
}

// WriteLines sends each line followed by \r\n in one write.
func (c *Conn) WriteLines(lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(strings.Join(lines, "\r\n") + "\r\n")
}

// WritePrompt sends prompt without a trailing newline.
func (c *Conn) WritePrompt(prompt string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(prompt)
}

// Write sends raw bytes to the client.
func (c *Conn) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(string(data))
}

// write must be called with mu held.
func (c *Conn) write(s string) error {
	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if _, err := fmt.Fprint(c.raw, s); err != nil {
		return fmt.Errorf("writing to %s: %w", c.raw.RemoteAddr(), err)
	}
	return nil
}

// Close closes the underlying TCP connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the remote network address of the client.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// FilterIAC removes Telnet commands from raw input, keeping escaped 0xFF
// bytes as a single 0xFF.
func FilterIAC(input []byte) []byte {
	result := make([]byte, 0, len(input))
	for i := 0; i < len(input); i++ {
		if input[i] != IAC || i+1 >= len(input) {
			result = append(result, input[i])
			continue
		}
		switch input[i+1] {
		case WILL, WONT, DO, DONT:
			i += 2
		case SB:
			j := i + 2
			for j < len(input)-1 && !(input[j] == IAC && input[j+1] == SE) {
				j++
			}
			i = j + 1
		case IAC:
			result = append(result, IAC)
			i++
		default:
			i++
		}
	}
	return result
}
