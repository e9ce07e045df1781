//go:build libdf
// +build libdf

package libdf

/*
#cgo LDFLAGS: -ldf -lm
#include <stdint.h>

typedef struct DFState DFState;

DFState *df_create(const uint8_t *model_bytes, int32_t model_size, int32_t channels, float atten_lim);
float df_process_frame(DFState *st, int16_t *input, int32_t frame_size);
int32_t df_get_frame_length(DFState *st);
void df_set_atten_lim(DFState *st, float lim_db);
void df_set_post_filter_beta(DFState *st, float beta);
void df_free(DFState *st);
*/
import "C"

import (
	"unsafe"

	"github.com/xaionaro-go/noisefilter/pkg/deepfilter"
)

// Engine calls the DeepFilterNet C API.
type Engine struct{}

var _ deepfilter.Engine = (*Engine)(nil)

func New() (*Engine, error) {
	return &Engine{}, nil
}

func cState(state deepfilter.State) *C.DFState {
	return (*C.DFState)(state)
}

func (*Engine) CreateState(model []byte, channels int32, attenLimDB float32) deepfilter.State {
	if len(model) == 0 {
		return nil
	}
	st := C.df_create(
		(*C.uint8_t)(unsafe.Pointer(unsafe.SliceData(model))),
		C.int32_t(len(model)),
		C.int32_t(channels),
		C.float(attenLimDB),
	)
	if st == nil {
		return nil
	}
	return deepfilter.State(unsafe.Pointer(st))
}

func (*Engine) ProcessFrame(state deepfilter.State, frame []int16) float32 {
	return float32(C.df_process_frame(
		cState(state),
		(*C.int16_t)(unsafe.Pointer(unsafe.SliceData(frame))),
		C.int32_t(len(frame)),
	))
}

func (*Engine) GetFrameLength(state deepfilter.State) int32 {
	return int32(C.df_get_frame_length(cState(state)))
}

func (*Engine) SetAttenLim(state deepfilter.State, limDB float32) {
	C.df_set_atten_lim(cState(state), C.float(limDB))
}

func (*Engine) SetPostFilterBeta(state deepfilter.State, beta float32) {
	C.df_set_post_filter_beta(cState(state), C.float(beta))
}

func (*Engine) FreeState(state deepfilter.State) {
	C.df_free(cState(state))
}
