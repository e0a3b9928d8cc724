// Package main runs the pose graph against synthetic trajectories and
// serves its metrics, as a smoke-test harness for the pipeline.
package main

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/viamrobotics/posegraph/mapping"
	"github.com/viamrobotics/posegraph/posegraph"
	"github.com/viamrobotics/posegraph/posegraph/constraintbuilder"
	"github.com/viamrobotics/posegraph/posegraph/optimization"
	"github.com/viamrobotics/posegraph/sensor"
	"github.com/viamrobotics/posegraph/spatialmath"
)

var logger = golog.NewDevelopmentLogger("posegraph_server")

type config struct {
	MetricsAddress      string  `default:":9090" split_words:"true"`
	Trajectories        int     `default:"2" split_words:"true"`
	ScansPerTrajectory  int     `default:"120" split_words:"true"`
	ScansPerSubmap      int     `default:"10" split_words:"true"`
	OptimizeEveryNScans int     `default:"20" split_words:"true"`
	GlobalSamplingRatio float64 `default:"0.1" split_words:"true"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debugw("no .env file loaded", "error", err)
	}
	var cfg config
	if err := envconfig.Process("posegraph", &cfg); err != nil {
		logger.Fatalw("parsing config", "error", err)
	}
	if err := runServer(context.Background(), cfg); err != nil {
		logger.Fatal(err)
	}
}

func runServer(ctx context.Context, cfg config) (err error) {
	opts := posegraph.DefaultOptions()
	opts.OptimizeEveryNScans = cfg.OptimizeEveryNScans
	opts.GlobalSamplingRatio = cfg.GlobalSamplingRatio
	graph := posegraph.New(opts, priorMatcher{}, optimization.IdentitySolver{}, logger)

	metricsServer := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}
	goutils.PanicCapturingGo(func() {
		if serveErr := metricsServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Errorw("metrics server", "error", serveErr)
		}
	})
	defer func() {
		err = multierr.Combine(err, metricsServer.Shutdown(context.Background()))
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Trajectories; i++ {
		i := i
		group.Go(func() error {
			ingestTrajectory(groupCtx, graph, cfg, i)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	if err := graph.RunFinalOptimization(ctx); err != nil {
		return err
	}
	for i, component := range graph.GetConnectedTrajectories() {
		logger.Infow("connected component", "index", i, "trajectories", component)
	}
	logger.Infow("done",
		"nodes", graph.GetNextTrajectoryNodeIndex(),
		"constraints", len(graph.Constraints()))
	return graph.Close(ctx)
}

// ingestTrajectory replays a synthetic platform driving along x with a
// slow yaw, rotating submaps the way a local trajectory builder would.
func ingestTrajectory(ctx context.Context, graph *posegraph.SparsePoseGraph, cfg config, seed int) {
	submaps := newSubmapCollection(cfg.ScansPerSubmap)
	covariance := spatialmath.NewDiagonalPoseCovariance(1e-4, 1e-6)
	start := time.Now()
	for i := 0; i < cfg.ScansPerTrajectory; i++ {
		if ctx.Err() != nil {
			return
		}
		stamp := start.Add(time.Duration(i) * 100 * time.Millisecond)
		pose := spatialmath.NewRigid3(
			r3.Vector{X: 0.05 * float64(i), Y: 0.3 * float64(seed)},
			spatialmath.NewRotationAboutAxis(r3.Vector{Z: 1}, 0.01*float64(i)),
		)
		insertion := submaps.insert(pose)
		graph.AddScan(stamp, syntheticScan(i), pose, covariance, submaps.trajectory, insertion[0], insertion)
		graph.AddIMUData(submaps.trajectory, stamp,
			r3.Vector{Z: 9.8},
			spatialmath.AngularVelocity{Z: 0.01})
	}
}

// submapCollection mimics a local trajectory builder's active submap
// pair: every scan inserts into the pair, and every scansPerSubmap
// scans the pair rotates, finishing its front.
type submapCollection struct {
	trajectory     *mapping.BasicTrajectory
	submaps        []*mapping.BasicSubmap
	scansPerSubmap int
	sinceRotate    int
}

func newSubmapCollection(scansPerSubmap int) *submapCollection {
	return &submapCollection{
		trajectory:     mapping.NewBasicTrajectory(),
		scansPerSubmap: scansPerSubmap,
	}
}

func (c *submapCollection) insert(localPose spatialmath.Rigid3) []mapping.Submap {
	if len(c.submaps) == 0 {
		c.submaps = append(c.submaps, c.trajectory.AppendSubmap(localPose))
	}
	insertion := c.currentPair()
	c.sinceRotate++
	if c.sinceRotate >= c.scansPerSubmap {
		c.sinceRotate = 0
		if len(c.submaps) > 1 {
			c.submaps[len(c.submaps)-2].Finish()
		}
		c.submaps = append(c.submaps, c.trajectory.AppendSubmap(localPose))
	}
	return insertion
}

func (c *submapCollection) currentPair() []mapping.Submap {
	if len(c.submaps) == 1 {
		return []mapping.Submap{c.submaps[0]}
	}
	return []mapping.Submap{
		c.submaps[len(c.submaps)-2],
		c.submaps[len(c.submaps)-1],
	}
}

func syntheticScan(i int) sensor.RangeData {
	rd := sensor.RangeData{}
	for a := 0; a < 60; a++ {
		theta := 2 * math.Pi * float64(a) / 60
		rd.Returns = append(rd.Returns, r3.Vector{
			X: 4 * math.Cos(theta),
			Y: 4 * math.Sin(theta),
			Z: 0.1 * float64(i%3),
		})
	}
	return rd
}

// priorMatcher stands in for a real scan matcher: it accepts local
// matches at their prior and full-submap matches at identity.
type priorMatcher struct{}

func (priorMatcher) Match(
	submap mapping.Submap,
	scan sensor.RangeData,
	initialRelativePose spatialmath.Rigid3,
) (*constraintbuilder.Match, error) {
	return &constraintbuilder.Match{
		Relative:        initialRelativePose,
		Score:           0.9,
		SqrtInformation: identityInformation(),
	}, nil
}

func (priorMatcher) MatchFullSubmap(
	submap mapping.Submap,
	scan sensor.RangeData,
) (*constraintbuilder.Match, error) {
	return &constraintbuilder.Match{
		Relative:        spatialmath.Identity(),
		Score:           0.7,
		SqrtInformation: identityInformation(),
	}, nil
}

func identityInformation() *mat.SymDense {
	information := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		information.SetSym(i, i, 10)
	}
	return information
}
