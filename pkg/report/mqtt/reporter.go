package mqtt

import (
	"context"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	fx "github.com/robotalks/picoboot.go/pkg/framework"
	"github.com/robotalks/picoboot.go/pkg/picoboot"
	"github.com/robotalks/picoboot.go/pkg/report/msgs"
)

// Topics relative to the source.
const (
	TopicProgress = "progress"
	TopicResult   = "result"
)

// DefaultPublishTimeout bounds the wait for a publish.
const DefaultPublishTimeout = 100 * time.Millisecond

// Publisher publishes payloads to topics.
type Publisher interface {
	Pub(topic string, payload []byte) paho.Token
}

// Reporter publishes programming progress of one port.
// Topics are <source>/progress and <source>/result.
type Reporter struct {
	Publisher Publisher
	Source    string
	Port      string
	Timeout   time.Duration
}

// NewReporter creates a Reporter.
func NewReporter(pub Publisher, source, port string) *Reporter {
	return &Reporter{Publisher: pub, Source: source, Port: port, Timeout: DefaultPublishTimeout}
}

// Progress implements picoboot.ProgressCallback.
func (r *Reporter) Progress(p picoboot.Progress) {
	r.publish(TopicProgress, msgs.NewProgressEvent(p))
}

// Result publishes the outcome of Program.
func (r *Reporter) Result(result *picoboot.Result, err error) {
	r.publish(TopicResult, msgs.NewResultEvent(result, err))
}

func (r *Reporter) publish(topic string, msg msgs.SerializableMessage) {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		glog.Errorf("encode %s: %v", topic, err)
		return
	}
	payload, err := typed.From(r.Source, r.Port).Encode()
	if err != nil {
		glog.Errorf("encode %s: %v", topic, err)
		return
	}
	token := r.Publisher.Pub(r.Source+"/"+topic, payload)
	if r.Timeout > 0 && !token.WaitTimeout(r.Timeout) {
		glog.Warningf("publish %s timeout", topic)
		return
	}
	if err := token.Error(); err != nil {
		glog.Warningf("publish %s: %v", topic, err)
	}
}

// Report is a decoded report delivered to a framework.MessageHandler.
type Report struct {
	Source string
	Typed  *msgs.Typed
	Msg    msgs.SerializableMessage
}

// NewMessage implements framework.Message.
func (r *Report) NewMessage() fx.Message { return &Report{} }

// Subscriber receives payloads by topics.
type Subscriber interface {
	Sub(topic string, handler Handler) *Subscription
}

// SubscribeReports subscribes reports from all sources. Each decoded
// report is passed to handler as a *Report with ctx.
func SubscribeReports(ctx context.Context, sub Subscriber, handler fx.MessageHandler) []*Subscription {
	h := func(topic string, payload []byte) {
		source := topic
		if n := strings.LastIndex(topic, "/"); n >= 0 {
			source = topic[:n]
		}
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			glog.Warningf("%s: bad message: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			glog.Warningf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
			return
		}
		handler.HandleMessage(ctx, &Report{Source: source, Typed: typed, Msg: msg.(msgs.SerializableMessage)})
	}
	return []*Subscription{
		sub.Sub("+/"+TopicProgress, h),
		sub.Sub("+/"+TopicResult, h),
	}
}
