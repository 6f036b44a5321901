package mpi

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"
)

// Network implements the Mpi interface using network calls provided by the net
// package in the standard library. Network creates an all-to-all connection
// using the specified network protocol among all provided addresses. Network
// uses encoding/gob for (de)serialization, and so some network protocols may
// not be appropriate. The network is not built with security in mind, but it
// does confirm that the provided password is the same before accepting any
// connection.
//
// Network uses the flags provided. It takes the values provided by the flags
// if the zero values are present for the network values.
type Network struct {
	NetProto string        // Which network protocol to use (see net package for options)
	Addr     string        // Address of the local process
	Addrs    []string      // List of the addresses of all nodes. Addr must be among them
	Timeout  time.Duration // If set, Init fails if the connections are not made within the duration

	Password string

	myrank int // rank of this process
	nNodes int // total number of processes

	connections []*pairwiseConnection // connections to all of the other nodes
	local       *localConnection
}

func (n *Network) Rank() int {
	if n.nNodes == 0 {
		return -1
	}
	return n.myrank
}

func (n *Network) Size() int {
	return n.nNodes
}

// delivery is what a tag channel carries: the payload of a message or the
// error that prevented reading it.
type delivery struct {
	b   []byte
	err error
}

type localConnection struct {
	manager    *tagManager
	storedData map[int][]byte
	mux        sync.Mutex
}

func (l *localConnection) AddBytes(tag int, b []byte) error {
	err := l.manager.Add(tag)
	if err != nil {
		return err
	}
	l.mux.Lock()
	l.storedData[tag] = b
	l.mux.Unlock()
	return nil
}

func (l *localConnection) Bytes(tag int) ([]byte, error) {
	l.mux.Lock()
	b, ok := l.storedData[tag]
	l.mux.Unlock()
	if !ok {
		return nil, fmt.Errorf("no local message with tag %d", tag)
	}
	return b, nil
}

func (l *localConnection) Delete(tag int) {
	l.manager.Delete(tag)
	l.mux.Lock()
	delete(l.storedData, tag)
	l.mux.Unlock()
}

// tagManager is used to manage tagged messages
type tagManager struct {
	commMap map[int]chan delivery
	mux     sync.Mutex
}

func newTagManager() *tagManager {
	return &tagManager{
		commMap: make(map[int]chan delivery),
	}
}

// Add adds a tag to the map, returning an error if the tag already exists.
func (t *tagManager) Add(tag int) error {
	t.mux.Lock()
	defer t.mux.Unlock()
	if _, ok := t.commMap[tag]; ok {
		return TagExists{Tag: tag}
	}
	t.commMap[tag] = make(chan delivery)
	return nil
}

// Delete removes the tag from the map
func (t *tagManager) Delete(tag int) {
	t.mux.Lock()
	defer t.mux.Unlock()
	delete(t.commMap, tag)
}

// Channel returns the channel for that tag
func (t *tagManager) Channel(tag int) (chan delivery, error) {
	t.mux.Lock()
	defer t.mux.Unlock()
	c, ok := t.commMap[tag]
	if !ok {
		return nil, fmt.Errorf("no pending request with tag %d", tag)
	}
	return c, nil
}

// pairwiseConnection holds both directions of the link to one peer. The
// encoders and decoders live as long as the connection so type information is
// only sent once per stream.
type pairwiseConnection struct {
	dial    net.Conn // Send on
	dialEnc *gob.Encoder
	dialDec *gob.Decoder

	listen    net.Conn // Receive from
	listenEnc *gob.Encoder
	listenDec *gob.Decoder

	dialWrite, dialRead     sync.Mutex
	listenWrite, listenRead sync.Mutex

	inbox    *inbox
	sendtags *tagManager
}

// inbox sorts the messages arriving from one peer by tag. A message whose tag
// has no Receive posted yet is parked until one is. Every waiting receiver has
// exactly one reader goroutine working for it.
type inbox struct {
	mu      sync.Mutex
	waiting map[int]chan delivery
	parked  map[int][][]byte
}

func newInbox() *inbox {
	return &inbox{
		waiting: make(map[int]chan delivery),
		parked:  make(map[int][][]byte),
	}
}

// claim returns a parked message for tag. If there is none, it registers a
// waiting receiver and returns its channel; the caller then starts a reader.
func (in *inbox) claim(tag int) (b []byte, ch chan delivery, err error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if _, ok := in.waiting[tag]; ok {
		return nil, nil, TagExists{Tag: tag}
	}
	if q := in.parked[tag]; len(q) > 0 {
		b = q[0]
		if len(q) == 1 {
			delete(in.parked, tag)
		} else {
			in.parked[tag] = q[1:]
		}
		return b, nil, nil
	}
	ch = make(chan delivery, 1)
	in.waiting[tag] = ch
	return nil, ch, nil
}

// deliver hands b to the receiver waiting on tag, or parks it. It reports
// whether a receiver took it.
func (in *inbox) deliver(tag int, b []byte) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	ch, ok := in.waiting[tag]
	if !ok {
		in.parked[tag] = append(in.parked[tag], b)
		return false
	}
	delete(in.waiting, tag)
	ch <- delivery{b: b}
	return true
}

// fail reports err to one waiting receiver.
func (in *inbox) fail(err error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for tag, ch := range in.waiting {
		delete(in.waiting, tag)
		ch <- delivery{err: err}
		return
	}
}

// Init implements the Mpi init function
func (n *Network) Init() error {
	// First, deal with flags
	if n.NetProto == "" {
		n.NetProto = FlagProtocol
	}
	if n.Password == "" {
		n.Password = FlagPassword
	}
	if n.Timeout == 0 {
		n.Timeout = time.Duration(FlagInitTimeout)
	}
	if n.Addr == "" {
		n.Addr = FlagAddr
	}
	if len(n.Addrs) == 0 {
		n.Addrs = append([]string(nil), FlagAllAddrs...)
	}

	// Sort all of the addresses to ensure that all processes agree
	sort.Strings(n.Addrs)

	// Make sure all of the addresses are unique
	for i := 0; i < len(n.Addrs)-1; i++ {
		if n.Addrs[i] == n.Addrs[i+1] {
			return fmt.Errorf("mpi init: address %q not unique", n.Addrs[i])
		}
	}

	// Rank is the order in the list
	n.myrank = sort.SearchStrings(n.Addrs, n.Addr)

	// Check that the local address is one of the addresses
	if !(n.myrank < len(n.Addrs) && n.Addrs[n.myrank] == n.Addr) {
		return errors.New("mpi init: local address not in global list")
	}

	n.nNodes = len(n.Addrs)

	if err := n.startConnections(); err != nil {
		n.close()
		n.nNodes = 0
		return err
	}
	return nil
}

func (n *Network) startConnections() error {
	// Create bi-way all-to-all connections. Listen for all of the nodes and then
	// dial all of the nodes
	n.connections = make([]*pairwiseConnection, n.nNodes)
	for i := range n.connections {
		n.connections[i] = &pairwiseConnection{
			inbox:    newInbox(),
			sendtags: newTagManager(),
		}
	}
	n.local = &localConnection{
		manager:    newTagManager(),
		storedData: make(map[int][]byte),
	}

	var listenError error
	var dialError error

	wg := &sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		listenError = n.establishListenConnections()
	}()

	go func() {
		defer wg.Done()
		dialError = n.establishDialConnections()
	}()

	wg.Wait()

	return errors.Join(listenError, dialError)
}

type initialMessage struct {
	Password string
	Id       int
}

type listConn struct {
	conn net.Conn
	err  error
}

// establishListenConnections listens for all of the other nodes
func (n *Network) establishListenConnections() error {
	listener, err := net.Listen(n.NetProto, n.Addr)
	if err != nil {
		return fmt.Errorf("mpi init: listening: %w", err)
	}
	defer listener.Close()

	connErr := make([]error, n.nNodes)
	wg := &sync.WaitGroup{}

	for i := 0; i < n.nNodes; i++ {
		if i == n.myrank {
			continue // Don't listen to yourself
		}

		// The accept runs in its own goroutine so a requested timeout can stop
		// the wait when the all-to-all connection can't happen.
		acceptChan := make(chan listConn, 1)
		go func() {
			conn, err := listener.Accept()
			acceptChan <- listConn{conn, err}
		}()

		var list listConn
		if n.Timeout > 0 {
			timer := time.NewTimer(n.Timeout)
			select {
			case list = <-acceptChan:
				timer.Stop()
			case <-timer.C:
				list = listConn{err: errors.New("listener timed out")}
			}
		} else {
			list = <-acceptChan
		}

		if list.err != nil {
			// All-to-all needs to happen, so if there's an error break
			connErr[i] = fmt.Errorf("mpi init: accepting: %w", list.err)
			break
		}

		wg.Add(1)
		go func(i int, conn net.Conn) {
			defer wg.Done()
			dec := gob.NewDecoder(conn)
			var message initialMessage
			if err := dec.Decode(&message); err != nil {
				connErr[i] = err
				conn.Close()
				return
			}

			id, err := n.passwordAndId(message)
			if err != nil {
				connErr[i] = err
				conn.Close()
				return
			}

			// Send back a handshake the other way
			enc := gob.NewEncoder(conn)
			if err := enc.Encode(initialMessage{Password: n.Password, Id: n.myrank}); err != nil {
				connErr[i] = err
				conn.Close()
				return
			}
			c := n.connections[id]
			c.listen, c.listenEnc, c.listenDec = conn, enc, dec
		}(i, list.conn)
	}
	wg.Wait()

	return errors.Join(connErr...)
}

func (n *Network) establishDialConnections() error {
	// Each program also dials every other program
	connectionError := make([]error, n.nNodes)
	wg := &sync.WaitGroup{}
	for i := 0; i < n.nNodes; i++ {
		if i == n.myrank {
			continue // Don't dial yourself
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			// Keep dialing every 0.3s until a connection is reached
			var conn net.Conn
			var err error
			t := time.Now()
			for {
				conn, err = net.DialTimeout(n.NetProto, n.Addrs[i], n.Timeout)
				if err == nil || (n.Timeout > 0 && time.Since(t) > n.Timeout) {
					break
				}
				time.Sleep(300 * time.Millisecond)
			}
			if err != nil {
				connectionError[i] = err
				return
			}

			// Established the connection, send the first handshake message
			enc := gob.NewEncoder(conn)
			if err := enc.Encode(initialMessage{Password: n.Password, Id: n.myrank}); err != nil {
				connectionError[i] = err
				conn.Close()
				return
			}

			// Receive the handshake message back
			dec := gob.NewDecoder(conn)
			var message initialMessage
			if err := dec.Decode(&message); err != nil {
				connectionError[i] = err
				conn.Close()
				return
			}
			id, err := n.passwordAndId(message)
			if err != nil {
				connectionError[i] = err
				conn.Close()
				return
			}
			c := n.connections[id]
			c.dial, c.dialEnc, c.dialDec = conn, enc, dec
		}(i)
	}
	wg.Wait()

	return errors.Join(connectionError...)
}

// passwordAndId checks that the password matches what the network expects and
// that the id is valid
func (n *Network) passwordAndId(message initialMessage) (int, error) {
	if message.Password != n.Password {
		return -1, errors.New("bad password")
	}
	if message.Id >= n.nNodes || message.Id < 0 || message.Id == n.myrank {
		return -1, fmt.Errorf("bad id: %v", message.Id)
	}
	return message.Id, nil
}

// Finalize implements the Mpi finalize function
func (n *Network) Finalize() {
	n.close()
}

// close closes all of the connections
func (n *Network) close() {
	for _, conn := range n.connections {
		if conn.dial != nil {
			conn.dial.Close()
		}
		if conn.listen != nil {
			conn.listen.Close()
		}
	}
}

// message to send over the wire
type message struct {
	Tag   int
	Bytes []byte
}

// Send implements the Mpi function
func (n *Network) Send(data interface{}, destination, tag int) error {
	if err := checkRank(destination, n.nNodes, "send"); err != nil {
		return err
	}

	// The data is serialized first, and the tag and bytes are sent together.
	// message is not of type {int, interface{}} because then the receiver
	// couldn't deserialize without knowing the type, which would make
	// concurrent sends impossible
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("mpi: encoding message for rank %d: %w", destination, err)
	}

	if destination == n.myrank {
		return n.local.AddBytes(tag, buf.Bytes())
	}

	c := n.connections[destination]
	if err := c.sendtags.Add(tag); err != nil {
		return err
	}

	c.dialWrite.Lock()
	err := c.dialEnc.Encode(message{Tag: tag, Bytes: buf.Bytes()})
	c.dialWrite.Unlock()
	if err != nil {
		c.sendtags.Delete(tag)
		return &PeerError{Rank: destination, Op: "send", Err: err}
	}

	go n.confirmationReader(destination, tag)
	return nil
}

// confirmationReader reads the confirmation of a received message. When
// confirmation is received, it is passed on the channel of the confirmed tag.
func (n *Network) confirmationReader(destination, tag int) {
	c := n.connections[destination]
	var m message
	c.dialRead.Lock()
	err := c.dialDec.Decode(&m)
	c.dialRead.Unlock()
	if err != nil {
		m.Tag = tag
	}
	ch, cerr := c.sendtags.Channel(m.Tag)
	if cerr != nil {
		// A confirmation nobody waits for; report it against our own tag.
		ch, cerr = c.sendtags.Channel(tag)
		if cerr != nil {
			return
		}
		err = fmt.Errorf("unexpected confirmation for tag %d", m.Tag)
	}
	ch <- delivery{err: err}
}

// Wait implements the Mpi function
func (n *Network) Wait(destination, tag int) error {
	if err := checkRank(destination, n.nNodes, "wait"); err != nil {
		return err
	}
	// Wait for a receive from that tag, and then delete the tag to free it for
	// reuse
	if destination == n.myrank {
		ch, err := n.local.manager.Channel(tag)
		if err != nil {
			return &PeerError{Rank: destination, Op: "wait", Err: err}
		}
		<-ch
		n.local.Delete(tag)
		return nil
	}
	c := n.connections[destination]
	ch, err := c.sendtags.Channel(tag)
	if err != nil {
		return &PeerError{Rank: destination, Op: "wait", Err: err}
	}
	d := <-ch
	c.sendtags.Delete(tag)
	if d.err != nil {
		return &PeerError{Rank: destination, Op: "wait", Err: d.err}
	}
	return nil
}

// Receive implements the Mpi function
func (n *Network) Receive(data interface{}, source, tag int) error {
	if err := checkRank(source, n.nNodes, "receive"); err != nil {
		return err
	}

	var b []byte
	if source == n.myrank {
		// Get the stored bytes and send a completion signal
		var err error
		b, err = n.local.Bytes(tag)
		if err != nil {
			return &PeerError{Rank: source, Op: "receive", Err: err}
		}
		ch, err := n.local.manager.Channel(tag)
		if err != nil {
			return &PeerError{Rank: source, Op: "receive", Err: err}
		}
		go func() { ch <- delivery{} }()
	} else {
		c := n.connections[source]
		parked, ch, err := c.inbox.claim(tag)
		if err != nil {
			return err
		}
		if ch == nil {
			// Arrived before this Receive; the sender is still waiting for
			// the confirmation.
			b = parked
			n.confirm(c, tag)
		} else {
			go n.receiveReader(source) // decoupled because there may be concurrent sends

			d := <-ch
			if d.err != nil {
				return &PeerError{Rank: source, Op: "receive", Err: d.err}
			}
			b = d.b
		}
	}

	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(data); err != nil {
		return fmt.Errorf("mpi: decoding message from rank %d: %w", source, err)
	}
	return nil
}

// receiveReader reads messages from the connection until one of them goes to
// a waiting receiver, and confirms its receipt to the sender. Messages nobody
// waits for yet are parked in the inbox.
func (n *Network) receiveReader(source int) {
	c := n.connections[source]
	for {
		var m message
		c.listenRead.Lock()
		err := c.listenDec.Decode(&m)
		c.listenRead.Unlock()
		if err != nil {
			c.inbox.fail(err)
			return
		}
		if c.inbox.deliver(m.Tag, m.Bytes) {
			n.confirm(c, m.Tag)
			return
		}
	}
}

// confirm tells the sender that the message with tag was received. A failure
// here surfaces in the sender's Wait.
func (n *Network) confirm(c *pairwiseConnection, tag int) {
	c.listenWrite.Lock()
	c.listenEnc.Encode(message{Tag: tag})
	c.listenWrite.Unlock()
}
