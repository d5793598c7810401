// Package analysis post-processes integrator runs.
//
//   - [FitDecay]: exponential decay rate of a mean density history
//   - [DiffusionTime]: fundamental-mode diffusion time of a slab
//   - [Profile]: shape summary of a density profile
//   - [ScanTimeStep]: repeats a run over a range of time steps
//
// # Decay
//
// Once higher modes have died out an afterglow decays as exp(-t/tau) with
// tau close to DiffusionTime:
//
//	fit, err := analysis.FitDecay(res.Times(), res.MeanNe())
//	tau := analysis.DiffusionTime(width, da)
package analysis
