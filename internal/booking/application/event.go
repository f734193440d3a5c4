package application

import (
	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

// NoticeEventName is the topic every user-visible notice is published on.
const NoticeEventName = "BookingNotice"

type noticeEvent struct {
	name   string
	notice domain.Notice
}

func (e noticeEvent) EventName() string { return e.name }

func (e noticeEvent) Payload() domain.Notice { return e.notice }

func NewNoticeEvent(notice domain.Notice) pkgDomain.Event[domain.Notice] {
	return noticeEvent{name: NoticeEventName, notice: notice}
}

// NoticeEventFactory rebuilds notice events on the consumer side of a broker.
func NoticeEventFactory(eventName string, notice domain.Notice) pkgDomain.Event[domain.Notice] {
	return noticeEvent{name: eventName, notice: notice}
}
