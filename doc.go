// Package emuflux estimates metabolic fluxes from stable-isotope labeling
// data using the Elementary Metabolite Unit (EMU) decomposition.
//
// A model file lists reactions with their atom transitions, the measured
// mass isotopomer distributions and the labeled inputs. From it the
// library derives the EMU reactions a measurement depends on, splits them
// into size-ordered networks and compiles a symbolic model. The simulator
// turns a flux vector into simulated distributions (and their flux
// derivatives) by solving one linear system per network. The fitter runs
// bounded Levenberg–Marquardt restarts over the free fluxes.
//
// Packages, bottom-up:
//
//	emu/        units, reactions, mass isotopomer distributions
//	core/       directed graph used for dependency analysis
//	dfs/        topological order and strongly connected components
//	matrix/     dense and sparse operators, QR and LU solves
//	network/    atom-mapped reactions and their parsed form
//	derive/     breadth-first EMU reaction derivation
//	partition/  size networks and component splitting
//	labeling/   input MIDs from labeled substrate mixtures
//	flux/       free/dependent flux layout
//	symbolic/   per-network A/B/derivative entries
//	simulator/  MID and derivative computation
//	residual/   weighted residuals and Jacobian
//	fit/        multistart bounded least squares
//	model/      YAML model files and compilation
//	store/      SQLite persistence of fit runs
//
// The emuflux command in cmd/emuflux wraps the whole pipeline.
package emuflux
