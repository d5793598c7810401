package integrator_test

import (
	"context"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/plasma1d/internal/integrator"
	"github.com/san-kum/plasma1d/internal/mesh"
	"github.com/san-kum/plasma1d/internal/plasma"
	"github.com/san-kum/plasma1d/internal/transport"
)

var _ = Describe("ambipolar afterglow", func() {
	var (
		st  *plasma.State
		in  *integrator.Integrator
		res *integrator.Result
	)

	BeforeEach(func() {
		m, err := mesh.New(0.1, 11)
		Expect(err).NotTo(HaveOccurred())
		st, err = plasma.New(m, plasma.DefaultConfig(), plasma.Uniform{Ne: 1e17, Nn: 3.3e20, Te: 1, Ti: 0.1})
		Expect(err).NotTo(HaveOccurred())
		in = integrator.New()
	})

	JustBeforeEach(func() {
		var err error
		res, err = in.Run(context.Background(), st, transport.NewAmbipolar(transport.DefaultOptions(), transport.Simplified), 1e-6, 100)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("with an observer on every step", func() {
		var snapshots []*plasma.State

		BeforeEach(func() {
			snapshots = nil
			in.AddObserver(integrator.ObserverFunc(func(_ integrator.Diagnostic, s *plasma.State) {
				snapshots = append(snapshots, s.Clone())
			}))
		})

		It("keeps ne equal to ni at every node", func() {
			Expect(snapshots).To(HaveLen(100))
			for _, s := range snapshots {
				Expect(s.Ne).To(Equal(s.Ni))
			}
		})

		It("keeps the wall densities at zero", func() {
			for _, s := range snapshots {
				n := s.Len()
				Expect(s.Ne[0]).To(BeZero())
				Expect(s.Ne[n-1]).To(BeZero())
				Expect(s.Ni[0]).To(BeZero())
				Expect(s.Ni[n-1]).To(BeZero())
			}
		})
	})

	It("completes every step", func() {
		Expect(res.Status).To(Equal(integrator.Completed))
		Expect(res.Diagnostics).To(HaveLen(100))
	})

	It("loses particles monotonically", func() {
		prev := 1e17
		for _, d := range res.Diagnostics {
			Expect(d.MeanNe).To(BeNumerically("<", prev), "step %d", d.Step)
			Expect(d.MeanNe).To(Equal(d.MeanNi))
			prev = d.MeanNe
		}
	})
})

var _ = Describe("limits", func() {
	It("hold for arbitrary finite initial conditions and an unstable dt", func() {
		r := rand.New(rand.NewSource(7))
		m, err := mesh.New(0.1, 21)
		Expect(err).NotTo(HaveOccurred())

		for trial := 0; trial < 5; trial++ {
			p := plasma.Profiles{}
			for _, f := range []*[]float64{&p.Ne, &p.Ni, &p.Te, &p.Ti} {
				*f = make([]float64, m.Len())
			}
			for i := 0; i < m.Len(); i++ {
				p.Ne[i] = r.Float64() * 1e23
				p.Ni[i] = r.Float64() * 1e23
				p.Te[i] = r.Float64()*200 - 50
				p.Ti[i] = r.Float64() * 5
			}
			st, err := plasma.FromProfiles(m, plasma.DefaultConfig(), p)
			Expect(err).NotTo(HaveOccurred())

			l := st.Config().Limits
			check := integrator.ObserverFunc(func(_ integrator.Diagnostic, s *plasma.State) {
				for i := 1; i < s.Len()-1; i++ {
					Expect(s.Ne[i]).To(BeNumerically(">=", l.NMin))
					Expect(s.Ne[i]).To(BeNumerically("<=", l.NMax))
					Expect(s.Ni[i]).To(BeNumerically(">=", l.NMin))
					Expect(s.Ni[i]).To(BeNumerically("<=", l.NMax))
					Expect(s.Te[i]).To(BeNumerically(">=", l.TMin))
					Expect(s.Te[i]).To(BeNumerically("<=", l.TMax))
					Expect(s.Ti[i]).To(BeNumerically(">=", l.TMin))
					Expect(s.Ti[i]).To(BeNumerically("<=", l.TMax))
				}
			})

			in := integrator.New()
			in.AddObserver(check)
			res, err := in.Run(context.Background(), st, transport.NewDiffusionOnly(transport.DefaultOptions()), 1e-3, 50)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Steps).To(Equal(50))
		}
	})
})

var _ = Describe("conservation", func() {
	step := func(wall plasma.Wall, dt float64) (before, after float64) {
		m, err := mesh.New(0.1, 11)
		Expect(err).NotTo(HaveOccurred())
		cfg := plasma.DefaultConfig()
		cfg.Wall = wall
		st, err := plasma.New(m, cfg, plasma.DefaultUniform())
		Expect(err).NotTo(HaveOccurred())

		before, _ = st.Inventory()
		Expect(integrator.New().Step(st, transport.NewDiffusionOnly(transport.DefaultOptions()), dt)).To(Succeed())
		after, _ = st.Inventory()
		return before, after
	}

	It("is exact for a uniform field behind extension walls", func() {
		before, after := step(plasma.Extension, 1e-6)
		Expect(after).To(Equal(before))
	})

	It("loses only the wall flux behind absorbing walls", func() {
		before, after := step(plasma.Absorbing, 1e-7)
		Expect(after).To(BeNumerically("<", before))
		Expect(after).To(BeNumerically("~", before, before*1e-3))
	})
})

var _ = Describe("minimum mesh", func() {
	It("differentiates on three nodes", func() {
		m, err := mesh.New(0.1, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(func() {
			m.FirstDerivative([]float64{0, 1, 2})
			m.SecondDerivative([]float64{0, 1, 4})
		}).NotTo(Panic())

		st, err := plasma.New(m, plasma.DefaultConfig(), plasma.DefaultUniform())
		Expect(err).NotTo(HaveOccurred())
		res, err := integrator.New().Run(context.Background(), st, transport.NewAmbipolar(transport.DefaultOptions(), transport.Simplified), 1e-6, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(integrator.Completed))
	})

	It("rejects two nodes", func() {
		_, err := mesh.New(0.1, 2)
		Expect(err).To(MatchError(mesh.ErrInvalidMesh))
	})
})

var _ = Describe("drift-diffusion", func() {
	It("fails the run with the unsupported closure error", func() {
		m, err := mesh.New(0.1, 11)
		Expect(err).NotTo(HaveOccurred())
		st, err := plasma.New(m, plasma.DefaultConfig(), plasma.DefaultUniform())
		Expect(err).NotTo(HaveOccurred())

		in := integrator.New()
		res, err := in.Run(context.Background(), st, transport.NewDriftDiffusion(), 1e-6, 10)
		Expect(err).To(MatchError(transport.ErrUnsupportedClosure))

		var serr *integrator.StepError
		Expect(err).To(BeAssignableToTypeOf(serr))
		Expect(res.Status).To(Equal(integrator.Failed))
		Expect(res.Steps).To(BeZero())
		Expect(in.Status()).To(Equal(integrator.Failed))
	})
})
