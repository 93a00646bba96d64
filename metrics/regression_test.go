package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func vec(v ...float64) *mat.VecDense {
	return mat.NewVecDense(len(v), v)
}

func TestErrorMetrics(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name     string
		yTrue    *mat.VecDense
		yPred    *mat.VecDense
		wantMSE  float64
		wantMAE  float64
		wantRMSE float64
		wantErr  bool
	}{
		{
			name:     "perfect prediction",
			yTrue:    vec(1, 2, 3, 4, 5),
			yPred:    vec(1, 2, 3, 4, 5),
			wantMSE:  0,
			wantMAE:  0,
			wantRMSE: 0,
		},
		{
			name:     "symmetric errors",
			yTrue:    vec(1, 2, 3, 4),
			yPred:    vec(1.5, 2.5, 2.5, 3.5),
			wantMSE:  0.25,
			wantMAE:  0.5,
			wantRMSE: 0.5,
		},
		{
			// the NaN prediction is an empty neighbourhood and is skipped
			name:     "NaN predictions skipped",
			yTrue:    vec(10, 20, 30),
			yPred:    vec(12, nan, 33),
			wantMSE:  6.5,
			wantMAE:  2.5,
			wantRMSE: math.Sqrt(6.5),
		},
		{
			name:    "dimension mismatch",
			yTrue:   vec(1, 2, 3),
			yPred:   vec(1, 2),
			wantErr: true,
		},
		{
			name:    "empty vectors",
			yTrue:   &mat.VecDense{},
			yPred:   &mat.VecDense{},
			wantErr: true,
		},
		{
			name:    "all predictions NaN",
			yTrue:   vec(1, 2),
			yPred:   vec(nan, nan),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mse, err := MSE(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MSE() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if _, err := MAE(tt.yTrue, tt.yPred); err == nil {
					t.Error("MAE() should fail too")
				}
				return
			}
			mae, _ := MAE(tt.yTrue, tt.yPred)
			rmse, _ := RMSE(tt.yTrue, tt.yPred)
			if math.Abs(mse-tt.wantMSE) > 1e-10 {
				t.Errorf("MSE() = %v, want %v", mse, tt.wantMSE)
			}
			if math.Abs(mae-tt.wantMAE) > 1e-10 {
				t.Errorf("MAE() = %v, want %v", mae, tt.wantMAE)
			}
			if math.Abs(rmse-tt.wantRMSE) > 1e-10 {
				t.Errorf("RMSE() = %v, want %v", rmse, tt.wantRMSE)
			}
		})
	}
}

func TestMSEMatrix(t *testing.T) {
	got, err := MSEMatrix(mat.NewDense(4, 1, []float64{1, 2, 3, 4}), mat.NewDense(4, 1, []float64{1.5, 2.5, 2.5, 3.5}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-0.25) > 1e-10 {
		t.Errorf("MSEMatrix() = %v, want 0.25", got)
	}

	if _, err := MSEMatrix(mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil)); err == nil {
		t.Error("multi-column input should fail")
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{"perfect", vec(1, 2, 3, 4), vec(1, 2, 3, 4), 1, false},
		{"mean predictor", vec(1, 2, 3, 4), vec(2.5, 2.5, 2.5, 2.5), 0, false},
		{"worse than mean", vec(1, 2, 3), vec(3, 2, 1), -3, false},
		{"constant truth", vec(2, 2, 2), vec(1, 2, 3), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("R2Score() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-10 {
				t.Errorf("R2Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoverageRate(t *testing.T) {
	yTrue := vec(0, 0, 0, 0, 0)
	yPred := vec(0.5, 1.5, -2.5, 0.1, math.NaN())
	variance := vec(1, 1, 1, math.NaN(), 1)

	got, err := CoverageRate(yTrue, yPred, variance, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// three samples carry both values; two lie within 2 standard errors
	if math.Abs(got-2.0/3.0) > 1e-12 {
		t.Errorf("CoverageRate() = %v, want 2/3", got)
	}

	if _, err := CoverageRate(yTrue, yPred, vec(1, 1), 2); err == nil {
		t.Error("mismatched variance length should fail")
	}
}
