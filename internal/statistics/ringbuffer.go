// Package statistics implements ring-buffered operational counters:
// elapsed time, in-flight depth, and throughput for the named
// activities the table server and milter adapter measure.
package statistics

import "time"

// buckets holds one second of data each; a few extra past sixty
// guarantees a full minute's worth of complete data even while the
// current bucket is still filling.
const buckets = 63

const (
	oneWindow   = 1
	tenWindow   = 10
	sixtyWindow = 60
)

// Window is a point-in-time summary over the last 1/10/60 one-second
// buckets of a ringBuffer.
type Window struct {
	Minimum float64 `json:"minimum"`
	Maximum float64 `json:"maximum"`
	One     float64 `json:"one"`
	Ten     float64 `json:"ten"`
	Sixty   float64 `json:"sixty"`
}

// kind selects how a ringBuffer folds values into, and retires, a
// bucket: averaging divides the accumulated sum by the sample count,
// leveling carries the last accumulated level forward unchanged,
// counting simply sums.
type kind int

const (
	kindAveraging kind = iota
	kindLeveling
	kindCounting
)

// ringBuffer is a fixed-size circular buffer of per-second values.
type ringBuffer struct {
	kind          kind
	buffer        [buckets]float64
	index         int
	currentSecond int64
	zero          float64

	count int     // averaging: samples folded into the current bucket
	accum float64 // leveling: running level carried across buckets
}

func newRingBuffer(k kind, zero float64) *ringBuffer {
	rb := &ringBuffer{kind: k, zero: zero, accum: zero, currentSecond: time.Now().Unix()}
	for i := range rb.buffer {
		rb.buffer[i] = zero
	}
	return rb
}

func (rb *ringBuffer) retireBucket() {
	switch rb.kind {
	case kindAveraging:
		if rb.count != 0 {
			rb.buffer[rb.index] /= float64(rb.count)
		}
		rb.count = 0
	case kindLeveling:
		rb.buffer[rb.index] = rb.accum
	case kindCounting:
		// Nothing to finalize; the bucket already holds the sum.
	}
}

func (rb *ringBuffer) updateBucket(value float64) {
	switch rb.kind {
	case kindAveraging, kindCounting:
		rb.buffer[rb.index] += value
		if rb.kind == kindAveraging {
			rb.count++
		}
	case kindLeveling:
		rb.accum += value
	}
}

func (rb *ringBuffer) retireElapsedBuckets(n int) {
	for i := 0; i < n; i++ {
		rb.retireBucket()
		rb.index++
		if rb.index >= len(rb.buffer) {
			rb.index = 0
		}
		rb.buffer[rb.index] = rb.zero
	}
}

func (rb *ringBuffer) makeSecondsCurrent() {
	now := time.Now().Unix()
	if elapsed := int(now - rb.currentSecond); elapsed > 0 {
		rb.retireElapsedBuckets(elapsed)
	}
	rb.currentSecond = now
}

// add folds value into the current (possibly just-rotated) bucket.
func (rb *ringBuffer) add(value float64) {
	rb.makeSecondsCurrent()
	rb.updateBucket(value)
}

func (rb *ringBuffer) stats() Window {
	rb.makeSecondsCurrent()

	j := rb.index - 1
	if j < 0 {
		j = len(rb.buffer) - 1
	}
	v := rb.buffer[j]
	w := Window{Minimum: v, Maximum: v, One: v}
	accum := v

	for i := 0; i < tenWindow-oneWindow; i++ {
		j--
		if j < 0 {
			j = len(rb.buffer) - 1
		}
		v = rb.buffer[j]
		if w.Minimum > v {
			w.Minimum = v
		}
		if w.Maximum < v {
			w.Maximum = v
		}
		accum += v
	}
	w.Ten = accum / tenWindow

	for i := 0; i < sixtyWindow-tenWindow; i++ {
		j--
		if j < 0 {
			j = len(rb.buffer) - 1
		}
		v = rb.buffer[j]
		if w.Minimum > v {
			w.Minimum = v
		}
		if w.Maximum < v {
			w.Maximum = v
		}
		accum += v
	}
	w.Sixty = accum / sixtyWindow

	return w
}
