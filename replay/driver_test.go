package replay_test

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/replay"
	"github.com/sarchlab/csim/trace"
)

type failingSource struct {
	events []trace.Event
	err    error
}

func (s *failingSource) Next() (trace.Event, error) {
	if len(s.events) == 0 {
		return trace.Event{}, s.err
	}
	e := s.events[0]
	s.events = s.events[1:]
	return e, nil
}

type limitedWriter struct {
	lines int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.lines == 0 {
		return 0, errors.New("disk full")
	}
	w.lines--
	return len(p), nil
}

var _ = Describe("Driver", func() {
	var (
		mockCtrl *gomock.Controller
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	newModel := func(s, e, b int) cache.Model {
		c, err := cache.New(cache.Geometry{
			SetIndexBits:    s,
			LinesPerSet:     e,
			BlockOffsetBits: b,
		})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	run := func(model cache.Model, text string, opts ...replay.Option) replay.Summary {
		d := replay.NewDriver(model, opts...)
		summary, err := d.Run(trace.NewReader(strings.NewReader(text)))
		Expect(err).NotTo(HaveOccurred())
		return summary
	}

	Describe("Scenarios", func() {
		It("should count scenario A", func() {
			summary := run(newModel(0, 1, 0), "L 0,1\nL 0,1\nL 1,1\n")

			Expect(summary.Statistics).To(Equal(cache.Statistics{
				Hits: 1, Misses: 2, Evictions: 1,
			}))
			Expect(summary.String()).To(Equal("hits:1 misses:2 evictions:1"))
		})

		It("should count scenario B", func() {
			summary := run(newModel(1, 1, 0), "L 0,1\nL 2,1\nL 1,1\n")

			Expect(summary.String()).To(Equal("hits:0 misses:3 evictions:1"))
		})

		It("should count scenario C", func() {
			summary := run(newModel(0, 2, 0), "M 5,1\n")

			Expect(summary.String()).To(Equal("hits:1 misses:1 evictions:0"))
			Expect(summary.Accesses).To(Equal(uint64(2)))
		})
	})

	Describe("Operations", func() {
		It("should ignore instruction fetches", func() {
			observer := NewMockObserver(mockCtrl)

			summary := run(newModel(1, 1, 1), "I 10,4\nI 20,4\n",
				replay.WithObserver(observer))

			Expect(summary.Statistics).To(BeZero())
			Expect(summary.Events).To(Equal(uint64(2)))
			Expect(summary.Accesses).To(BeZero())
		})

		It("should access once for loads and stores", func() {
			summary := run(newModel(1, 1, 1), "L 10,4\nS 10,4\n")

			Expect(summary.Accesses).To(Equal(uint64(2)))
			Expect(summary.String()).To(Equal("hits:1 misses:1 evictions:0"))
		})

		It("should hit twice when modifying a resident line", func() {
			summary := run(newModel(0, 1, 0), "L 8,1\nM 8,1\n")

			Expect(summary.String()).To(Equal("hits:2 misses:1 evictions:0"))
		})

		It("should miss, evict, then hit when modifying into a full set", func() {
			observer := NewMockObserver(mockCtrl)
			gomock.InOrder(
				observer.EXPECT().Observe(
					trace.Event{Op: trace.OpLoad, Address: 1, Size: 1, Line: 1},
					[]cache.Outcome{cache.MissFilled}),
				observer.EXPECT().Observe(
					trace.Event{Op: trace.OpModify, Address: 2, Size: 1, Line: 2},
					[]cache.Outcome{cache.MissEvicted, cache.Hit}),
			)

			summary := run(newModel(0, 1, 0), "L 1,1\nM 2,1\n",
				replay.WithObserver(observer))

			Expect(summary.String()).To(Equal("hits:1 misses:2 evictions:1"))
		})

		It("should hand each event to every observer", func() {
			first := NewMockObserver(mockCtrl)
			second := NewMockObserver(mockCtrl)
			first.EXPECT().Observe(gomock.Any(), gomock.Any()).Times(3)
			second.EXPECT().Observe(gomock.Any(), gomock.Any()).Times(3)

			run(newModel(1, 2, 1), "L 0,1\nI 0,1\nS 4,1\nM 8,1\n",
				replay.WithObserver(first), replay.WithObserver(second))
		})
	})

	Describe("Verbose echo", func() {
		It("should print each data event with its outcomes", func() {
			var out bytes.Buffer

			run(newModel(0, 1, 0), "I 0,4\nL 10,1\nM 10,2\nS 20,8\n",
				replay.WithVerbose(&out))

			Expect(out.String()).To(Equal(
				"L 16 1 miss\n" +
					"M 16 2 hit hit\n" +
					"S 32 8 miss eviction\n"))
		})

		It("should print miss, eviction and hit for a modify into a full set", func() {
			var out bytes.Buffer

			run(newModel(0, 1, 0), "L 1,1\nM 2,1\n", replay.WithVerbose(&out))

			Expect(out.String()).To(HaveSuffix("M 2 1 miss eviction hit\n"))
		})
	})

	Describe("Truncation", func() {
		prefix := "L 0,1\nS 40,1\nM 80,1\nL 0,1\n"

		It("should stop at a malformed record like an early end of file", func() {
			clean := run(newModel(1, 1, 4), prefix)
			truncated := run(newModel(1, 1, 4), prefix+"L 0x,1\nL 120,1\nM 0,1\n")

			Expect(truncated.Statistics).To(Equal(clean.Statistics))
			Expect(truncated.Events).To(Equal(clean.Events))
			Expect(clean.Truncated).To(BeNil())
			Expect(truncated.Truncated).NotTo(BeNil())
			Expect(truncated.Truncated.Line).To(Equal(5))
		})

		It("should apply nothing when the first record is malformed", func() {
			summary := run(newModel(1, 1, 4), "hello\nL 0,1\n")

			Expect(summary.Statistics).To(BeZero())
			Expect(summary.Truncated).NotTo(BeNil())
		})
	})

	It("should return source failures", func() {
		failure := &trace.SourceError{Path: "x.trace", Err: errors.New("boom")}
		src := &failingSource{
			events: []trace.Event{{Op: trace.OpLoad, Address: 1}},
			err:    failure,
		}

		summary, err := replay.NewDriver(newModel(1, 1, 1)).Run(src)

		Expect(err).To(MatchError(failure))
		Expect(summary.Misses).To(Equal(uint64(1)))
	})

	It("should stop at the first verbose write failure", func() {
		w := &limitedWriter{lines: 1}
		d := replay.NewDriver(newModel(1, 1, 1), replay.WithVerbose(w))

		summary, err := d.Run(trace.NewReader(
			strings.NewReader("L 0,1\nL 2,1\nL 4,1\n")))

		Expect(err).To(MatchError(ContainSubstring("disk full")))
		Expect(d.Err()).To(MatchError(err))
		Expect(summary.Accesses).To(Equal(uint64(2)))
	})

	It("should replay buffered traces per session", func() {
		buffer, err := trace.ReadAll(trace.NewReader(
			strings.NewReader("L 0,1\nM 10,1\nS 0,1\nbad\n")))
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 2; i++ {
			summary, err := replay.NewDriver(newModel(2, 1, 4)).Run(buffer.Source())
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.String()).To(Equal("hits:2 misses:2 evictions:0"))
			Expect(summary.Truncated).NotTo(BeNil())
		}
	})

	It("should balance hits and misses against the accesses performed", func() {
		rng := rand.New(rand.NewSource(7))
		ops := []string{"I", "L", "S", "M"}

		var text strings.Builder
		expected := uint64(0)
		for i := 0; i < 2000; i++ {
			op := ops[rng.Intn(len(ops))]
			fmt.Fprintf(&text, " %s %x,%d\n", op, rng.Intn(1<<12), 1+rng.Intn(8))
			expected += uint64(trace.Op(op[0]).Accesses())
		}

		for _, policy := range cache.Policies() {
			model, err := cache.NewModel(
				cache.Geometry{SetIndexBits: 3, LinesPerSet: 2, BlockOffsetBits: 4},
				policy)
			Expect(err).NotTo(HaveOccurred())

			summary := run(model, text.String())

			Expect(summary.Accesses).To(Equal(expected))
			Expect(summary.Hits + summary.Misses).To(Equal(expected))
			Expect(summary.Evictions).To(BeNumerically("<=", summary.Misses))
			Expect(summary.Events).To(Equal(uint64(2000)))
		}
	})
})
