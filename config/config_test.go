package config_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/config"
)

var _ = Describe("Options", func() {
	var opts *config.Options

	BeforeEach(func() {
		opts = config.DefaultOptions()
		opts.SetIndexBits = 4
		opts.LinesPerSet = 1
		opts.BlockOffsetBits = 4
		opts.TracePath = "traces/yi.trace"
	})

	It("should default to the counter policy", func() {
		Expect(config.DefaultOptions().Policy).To(Equal(cache.PolicyCounter))
	})

	It("should accept a complete configuration", func() {
		Expect(opts.Validate()).To(Succeed())
		Expect(opts.Geometry()).To(Equal(cache.Geometry{
			SetIndexBits: 4, LinesPerSet: 1, BlockOffsetBits: 4,
		}))
	})

	It("should list every missing option", func() {
		err := config.DefaultOptions().Validate()

		var cfgErr *config.Error
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Missing).To(Equal([]string{"s", "E", "b", "t"}))
		Expect(err.Error()).To(ContainSubstring("Missing Required Command Line Argument"))
	})

	It("should treat non-positive values as missing", func() {
		opts.BlockOffsetBits = 0
		opts.LinesPerSet = -2

		var cfgErr *config.Error
		Expect(errors.As(opts.Validate(), &cfgErr)).To(BeTrue())
		Expect(cfgErr.Missing).To(Equal([]string{"E", "b"}))
	})

	It("should reject an unknown policy", func() {
		opts.Policy = "random"

		var cfgErr *config.Error
		Expect(errors.As(opts.Validate(), &cfgErr)).To(BeTrue())
		Expect(cfgErr.Missing).To(BeEmpty())
		Expect(cfgErr.Invalid).To(HaveLen(1))
	})

	It("should reject a geometry the cache cannot build", func() {
		opts.SetIndexBits = 40

		err := opts.Validate()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("set index bits"))
	})

	It("should clone independently", func() {
		c := opts.Clone()
		c.Verbose = true

		Expect(opts.Verbose).To(BeFalse())
		Expect(c.TracePath).To(Equal(opts.TracePath))
	})

	Describe("Config files", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("should round-trip through JSON", func() {
			opts.Policy = cache.PolicyLRU
			opts.Verbose = true
			path := filepath.Join(dir, "csim.json")

			Expect(opts.SaveConfig(path)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(opts))
		})

		It("should keep defaults for absent fields", func() {
			path := filepath.Join(dir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"s": 2, "E": 4}`), 0644)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.SetIndexBits).To(Equal(2))
			Expect(loaded.LinesPerSet).To(Equal(4))
			Expect(loaded.Policy).To(Equal(cache.PolicyCounter))
		})

		It("should fail on a missing file", func() {
			_, err := config.LoadConfig(filepath.Join(dir, "none.json"))
			Expect(err).To(MatchError(ContainSubstring("failed to read config file")))
		})

		It("should fail on malformed JSON", func() {
			path := filepath.Join(dir, "bad.json")
			Expect(os.WriteFile(path, []byte(`{"s": `), 0644)).To(Succeed())

			_, err := config.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("failed to parse config")))
		})
	})
})
