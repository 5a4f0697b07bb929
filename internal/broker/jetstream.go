// Package broker 将完成的排班发布到 NATS JetStream，供下游（考勤、通知）订阅
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/zeebo/xxh3"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/source"
)

// 消息头
const (
	HeaderRunID       = "Roster-Run-Id"
	HeaderMonth       = "Roster-Month"
	HeaderValid       = "Roster-Valid"
	HeaderFingerprint = "Roster-Fingerprint"
)

// Config 发布配置
type Config struct {
	URL     string
	Stream  string
	Subject string        // 主题前缀，实际主题为 <Subject>.<月份>
	MaxAge  time.Duration // 0 表示不过期
	// Duplicates 去重窗口，窗口内内容相同的网格只保留一条
	Duplicates time.Duration
}

func (c *Config) applyDefaults() {
	if c.Stream == "" {
		c.Stream = "ROSTER"
	}
	if c.Subject == "" {
		c.Subject = "roster.runs"
	}
	if c.Duplicates <= 0 {
		c.Duplicates = 24 * time.Hour
	}
}

// Publisher JetStream 输出端，实现 source.OutputSink
type Publisher struct {
	js      jetstream.JetStream
	stream  string
	subject string
}

var _ source.OutputSink = (*Publisher)(nil)

// Connect 连接 NATS 并确保流存在，返回的关闭函数会断开连接
func Connect(ctx context.Context, cfg Config) (*Publisher, func(), error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("monthroster"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.CodePublishFailed, "连接 NATS 失败")
	}
	p, err := New(ctx, nc, cfg)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	return p, func() { _ = nc.Drain() }, nil
}

// New 基于已有连接创建发布器
func New(ctx context.Context, nc *nats.Conn, cfg Config) (*Publisher, error) {
	cfg.applyDefaults()

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePublishFailed, "获取 JetStream 上下文失败")
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "月度排班结果",
		Subjects:    []string{cfg.Subject + ".>"},
		Storage:     jetstream.FileStorage,
		MaxAge:      cfg.MaxAge,
		Duplicates:  cfg.Duplicates,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePublishFailed, "创建排班流失败").WithField("stream", cfg.Stream)
	}

	logger.Info().Str("stream", cfg.Stream).Str("subject", cfg.Subject).Msg("排班结果发布已就绪")
	return &Publisher{js: js, stream: cfg.Stream, subject: cfg.Subject}, nil
}

// Subject 月份对应的主题
func (p *Publisher) Subject(month string) string {
	return p.subject + "." + month
}

// Stream 流名称
func (p *Publisher) Stream() string {
	return p.stream
}

// Write 实现 source.OutputSink；消息 ID 取网格指纹，重复生成相同网格不会产生新消息
func (p *Publisher) Write(ctx context.Context, out *source.Output) error {
	data, err := json.Marshal(out)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodePublishFailed, "序列化排班结果失败")
	}
	fp := Fingerprint(out)

	msg := nats.NewMsg(p.Subject(out.Month))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, out.Month+"-"+fp)
	msg.Header.Set(HeaderRunID, out.RunID)
	msg.Header.Set(HeaderMonth, out.Month)
	msg.Header.Set(HeaderValid, strconv.FormatBool(out.Valid))
	msg.Header.Set(HeaderFingerprint, fp)

	ack, err := p.js.PublishMsg(ctx, msg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodePublishFailed, "发布排班结果失败").
			WithField("run_id", out.RunID)
	}
	logger.Info().
		Str("run_id", out.RunID).
		Str("subject", msg.Subject).
		Uint64("seq", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("排班结果已发布")
	return nil
}

// Fingerprint 网格内容指纹，只取决于月份、员工顺序和各单元格代码
func Fingerprint(out *source.Output) string {
	var b strings.Builder
	b.WriteString(out.Month)
	for _, st := range out.Staff {
		b.WriteByte('\n')
		b.WriteString(st.ID)
		for _, d := range out.Dates {
			b.WriteByte('|')
			b.WriteString(out.Cell(st.ID, d))
		}
	}
	return fmt.Sprintf("%016x", xxh3.HashString(b.String()))
}
