// Package http exposes the lesson booking API over net/http.
//
// The router serves the following endpoints. Bodies and responses use
// camelCase JSON; dates are YYYY-MM-DD and times HH:MM.
//   - POST /lessons: books a lesson. Body: lessonRequest. 201 with lessonDTO,
//     409 {"message","conflictingLesson"} when the teacher is busy, 400
//     {"message","errors"} on validation failures.
//   - GET /lessons?teacherId=&classId=&from=&to=&status=: lists lessons.
//   - GET /lessons/{id}, PUT /lessons/{id}, DELETE /lessons/{id}: detail,
//     partial update (lessonPatchRequest) and hard delete (204).
//   - POST /lessons/check-conflicts: read-only preview. Body:
//     {"teacherId","date","startTime","endTime","excludeLessonId"}. Response:
//     {"hasConflict","conflictingLesson"}.
//   - GET /classes, POST /classes, GET /classes/{id}: class registration.
//   - POST /classes/{id}/lessons: books lessons from the class template for
//     {"dates":[...]} or {"startsOn","endsOn"}. Response: {"results":[...]}
//     with one entry per date holding either "lesson" or "error".
//   - GET /healthz: liveness and storage ping.
//
// When RequireToken is installed, every request needs a bearer API token and
// write endpoints additionally need the admin or secretary role.
package http
