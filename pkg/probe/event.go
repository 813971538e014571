package probe

import (
	"fmt"

	"github.com/ethpandaops/streamcodec/pkg/verify"
)

const (
	ModuleName = "probe"
)

// Event names used for broker communication
var (
	OnProbePassed = fmt.Sprintf("%s:passed", ModuleName)
	OnProbeFailed = fmt.Sprintf("%s:failed", ModuleName)
)

type OnProbePassedCallback func(payload string, report *verify.Report)
type OnProbeFailedCallback func(payload string, report *verify.Report, err error)

// Subscribers
func (p *Prober) OnProbePassed(callback OnProbePassedCallback) {
	p.broker.On(OnProbePassed, callback)
}

func (p *Prober) OnProbeFailed(callback OnProbeFailedCallback) {
	p.broker.On(OnProbeFailed, callback)
}

// Emitters
func (p *Prober) emitProbePassed(payload string, report *verify.Report) {
	p.broker.Emit(OnProbePassed, payload, report)
}

func (p *Prober) emitProbeFailed(payload string, report *verify.Report, err error) {
	p.broker.Emit(OnProbeFailed, payload, report, err)
}
