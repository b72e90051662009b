package tracker

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StateMean represents the 1x8 motion state vector (center x, center y,
// area, aspect ratio and their first derivatives) using a slice of float32
type StateMean []float32

// StateCov represents the 8x8 state covariance matrix
type StateCov struct {
	*mat.Dense
}

// KalmanFilter estimates the motion state of a tracked box under a
// constant velocity model.  Area and ratio velocity terms are retained
// for smoothing but the transition couples velocity to the first three
// state components only.
type KalmanFilter struct {
	processNoise     float64
	measurementNoise float64
	initialVariance  float64
	motionMat        *mat.Dense
	updateMat        *mat.Dense
}

// NewKalmanFilter initializes and returns a new KalmanFilter with the
// given process and measurement noise variances
func NewKalmanFilter(processNoise, measurementNoise float64) *KalmanFilter {

	dt := 1.0

	// identity transition with dt coupling velocity into the center and
	// area components.  The ratio velocity term stays decoupled.
	motionMat := mat.NewDense(8, 8, nil)

	for i := 0; i < 8; i++ {
		motionMat.Set(i, i, 1.0)
	}

	motionMat.Set(0, 4, dt)
	motionMat.Set(1, 5, dt)
	motionMat.Set(2, 6, dt)

	// measurement matrix projecting the state onto (cx, cy, area, ratio)
	updateMat := mat.NewDense(4, 8, nil)

	for i := 0; i < 4; i++ {
		updateMat.Set(i, i, 1.0)
	}

	return &KalmanFilter{
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
		initialVariance:  10.0,
		motionMat:        motionMat,
		updateMat:        updateMat,
	}
}

// Initiate initializes the state mean and covariance from a first
// measurement
func (kf *KalmanFilter) Initiate(mean StateMean, covariance *StateCov,
	measurement Xyar) {

	copy(mean[:4], measurement[:4])

	for i := 4; i < 8; i++ {
		mean[i] = 0.0
	}

	covariance.Zero()

	for i := 0; i < 8; i++ {
		covariance.Set(i, i, kf.initialVariance)
	}
}

// Predict advances the state mean and covariance one frame under the
// constant velocity model and inflates uncertainty by the process noise
func (kf *KalmanFilter) Predict(mean StateMean, covariance *StateCov) {

	meanMat := mat.NewDense(8, 1, nil)

	for i := 0; i < 8; i++ {
		meanMat.Set(i, 0, float64(mean[i]))
	}

	meanMat.Mul(kf.motionMat, meanMat)

	for i := 0; i < 8; i++ {
		mean[i] = float32(meanMat.At(i, 0))
	}

	cov := covariance.Dense
	cov.Mul(kf.motionMat, cov)
	cov.Mul(cov, kf.motionMat.T())

	for i := 0; i < 8; i++ {
		cov.Set(i, i, cov.At(i, i)+kf.processNoise)
	}
}

// Update corrects the state mean and covariance with an observed box
func (kf *KalmanFilter) Update(mean StateMean, covariance *StateCov,
	measurement Xyar) error {

	projectedMean, projectedCov := kf.project(mean, covariance)

	chol := mat.Cholesky{}

	if ok := chol.Factorize(projectedCov); !ok {
		return errors.New("failed to factorize projected covariance")
	}

	// B = P * H^T used for gain calculation
	B := mat.NewDense(8, 4, nil)
	B.Mul(covariance.Dense, kf.updateMat.T())

	var gain mat.Dense

	if err := chol.SolveTo(&gain, B.T()); err != nil {
		return fmt.Errorf("failed to compute kalman gain: %w", err)
	}

	// innovation (measurement residual)
	innovation := mat.NewVecDense(4, nil)

	for i := 0; i < 4; i++ {
		innovation.SetVec(i, float64(measurement[i]-projectedMean[i]))
	}

	// blend the prediction with the observation
	shift := mat.NewVecDense(8, nil)
	shift.MulVec(gain.T(), innovation)

	for i := 0; i < 8; i++ {
		mean[i] += float32(shift.AtVec(i))
	}

	// covariance shrinks by gain^T * S * gain
	tmp := mat.NewDense(8, 4, nil)
	tmp.Mul(gain.T(), projectedCov)

	reduction := mat.NewDense(8, 8, nil)
	reduction.Mul(tmp, &gain)

	newCov := mat.NewDense(8, 8, nil)
	newCov.Sub(covariance.Dense, reduction)

	covariance.Dense = newCov

	return nil
}

// project maps the state mean and covariance into measurement space and
// adds the measurement noise covariance
func (kf *KalmanFilter) project(mean StateMean,
	covariance *StateCov) ([]float32, *mat.SymDense) {

	meanVec := mat.NewVecDense(8, nil)

	for i, v := range mean {
		meanVec.SetVec(i, float64(v))
	}

	projectedMeanVec := mat.NewVecDense(4, nil)
	projectedMeanVec.MulVec(kf.updateMat, meanVec)

	tmp := mat.NewDense(4, 8, nil)
	tmp.Mul(kf.updateMat, covariance.Dense)

	full := mat.NewDense(4, 4, nil)
	full.Mul(tmp, kf.updateMat.T())

	projectedCov := mat.NewSymDense(4, nil)

	for i := 0; i < 4; i++ {
		for j := i; j < 4; j++ {
			projectedCov.SetSym(i, j, full.At(i, j))
		}
	}

	for i := 0; i < 4; i++ {
		projectedCov.SetSym(i, i, projectedCov.At(i, i)+kf.measurementNoise)
	}

	projectedMean := make([]float32, 4)

	for i := 0; i < 4; i++ {
		projectedMean[i] = float32(projectedMeanVec.AtVec(i))
	}

	return projectedMean, projectedCov
}
