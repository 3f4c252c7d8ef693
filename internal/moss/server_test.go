package moss

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
)

// upload is one file command observed by the fake server.
type upload struct {
	id   int
	lang string
	name string
	data []byte
}

// transcript is everything the fake server read from one connection.
type transcript struct {
	commands []string
	uploads  []upload
	err      error
}

func (tr transcript) sawEnd() bool {
	for _, c := range tr.commands {
		if c == "end" {
			return true
		}
	}
	return false
}

// fakeServer speaks the server side of the protocol for a single connection.
// replies maps a command verb ("language", "query") to the line sent back.
type fakeServer struct {
	ln      net.Listener
	replies map[string]string
	done    chan transcript
}

func startFakeServer(t *testing.T, replies map[string]string) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &fakeServer{ln: ln, replies: replies, done: make(chan transcript, 1)}
	t.Cleanup(func() { _ = ln.Close() })
	go srv.serve()
	return srv
}

func (s *fakeServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeServer) client(userID string) *Client {
	return NewClient(userID, &Config{Server: "127.0.0.1", Port: s.port()})
}

func (s *fakeServer) serve() {
	conn, err := s.ln.Accept()
	if err != nil {
		s.done <- transcript{err: err}
		return
	}
	defer conn.Close()
	var tr transcript
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				tr.err = err
			}
			break
		}
		line = strings.TrimSuffix(line, "\n")
		tr.commands = append(tr.commands, line)
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		verb := fields[0]
		if verb == "file" && len(fields) >= 5 {
			id, _ := strconv.Atoi(fields[1])
			size, _ := strconv.Atoi(fields[3])
			data := make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				tr.err = err
				break
			}
			tr.uploads = append(tr.uploads, upload{id: id, lang: fields[2], name: fields[4], data: data})
			continue
		}
		if reply, ok := s.replies[verb]; ok {
			if _, err := io.WriteString(conn, reply+"\n"); err != nil {
				tr.err = err
				break
			}
		}
	}
	s.done <- tr
}

func (s *fakeServer) wait(t *testing.T) transcript {
	t.Helper()
	tr := <-s.done
	if tr.err != nil {
		t.Fatalf("fake server: %v", tr.err)
	}
	return tr
}
