package queue

import (
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// StartAuditConsumer connects to RabbitMQ, declares the rsvp.confirmed
// and payment.settled queues (durable), and starts consuming both.
// Each message is appended to logs/audit.log in a single-line,
// human-friendly format.  The function runs a reconnect loop with
// exponential backoff and keeps running across broker outages; failed
// messages are rejected without requeue so a poison message cannot
// wedge the consumer.
func StartAuditConsumer() error {
    url := brokerURL()

    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Printf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            time.Sleep(backoff)
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        if err := consumeLoop(conn); err != nil {
            log.Printf("audit-consumer: consume loop ended: %v; reconnecting", err)
            time.Sleep(2 * time.Second)
            continue
        }
    }
}

func consumeLoop(conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("audit-consumer: set QoS failed: %v", err)
    }

    for _, name := range []string{RSVPConfirmedQueue, PaymentSettledQueue} {
        if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", name, err)
        }
    }

    rsvps, err := ch.Consume(RSVPConfirmedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume %s: %w", RSVPConfirmedQueue, err)
    }
    payments, err := ch.Consume(PaymentSettledQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume %s: %w", PaymentSettledQueue, err)
    }

    for {
        select {
        case d, ok := <-rsvps:
            if !ok {
                return errors.New("rsvp deliveries channel closed")
            }
            handleDelivery(d, handleRSVPMessage)
        case d, ok := <-payments:
            if !ok {
                return errors.New("payment deliveries channel closed")
            }
            handleDelivery(d, handlePaymentMessage)
        }
    }
}

func handleDelivery(d amqp.Delivery, handle func([]byte) error) {
    if err := handle(d.Body); err != nil {
        log.Printf("audit-consumer: handle message failed: %v", err)
        _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
        return
    }
    _ = d.Ack(false)
}

func handleRSVPMessage(body []byte) error {
    var ev RSVPConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    line := fmt.Sprintf("[%s] RSVP confirmed | rsvp_id=%d | user_id=%d | show_id=%d | show=%q | status=%s\n",
        ev.ConfirmedAt, ev.RSVPID, ev.UserID, ev.ShowID, ev.ShowTitle, ev.Status)
    return appendAuditLine(line)
}

func handlePaymentMessage(body []byte) error {
    var ev PaymentSettledEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    line := fmt.Sprintf("[%s] Payment settled | payment_id=%d | reference=%s | status=%s | amount=%d cents | user_id=%d | show_id=%d | rsvp_id=%d\n",
        ev.SettledAt, ev.PaymentID, ev.Reference, ev.Status, ev.AmountCents, ev.UserID, ev.ShowID, ev.RSVPID)
    return appendAuditLine(line)
}

func appendAuditLine(line string) error {
    if err := os.MkdirAll("logs", 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    fpath := filepath.Join("logs", "audit.log")
    f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
