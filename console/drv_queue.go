package console

// QueueConsole is the embedded/UI Console driver: both input and
// output are plain byte queues driven entirely by the host, with no
// direct access to any OS terminal. A browser front-end or native UI
// event loop calls QueueByte to deliver keystrokes and DrainOutput to
// flush whatever the guest has written since the last drain.
type QueueConsole struct {
	input  []byte
	output []byte
}

func newQueueConsole() Console {
	return &QueueConsole{}
}

// WriteByte appends to the output buffer.
func (qc *QueueConsole) WriteByte(b byte) {
	qc.output = append(qc.output, b)
}

// ReadByte pops the oldest queued input byte.
func (qc *QueueConsole) ReadByte() (byte, bool) {
	if len(qc.input) == 0 {
		return 0, false
	}
	b := qc.input[0]
	qc.input = qc.input[1:]
	return b, true
}

// HasInput reports whether an input byte is queued.
func (qc *QueueConsole) HasInput() bool {
	return len(qc.input) > 0
}

// QueueByte appends a byte to the input queue.
func (qc *QueueConsole) QueueByte(b byte) {
	qc.input = append(qc.input, b)
}

// ClearQueue discards any buffered input.
func (qc *QueueConsole) ClearQueue() {
	qc.input = nil
}

// DrainOutput returns and clears everything written since the last
// drain. Part of the Drainer interface.
func (qc *QueueConsole) DrainOutput() []byte {
	out := qc.output
	qc.output = nil
	return out
}

// GetName returns "queue".
func (qc *QueueConsole) GetName() string {
	return "queue"
}

func init() {
	Register("queue", newQueueConsole)
}
